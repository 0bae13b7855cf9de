package domain

// Store 是一条规范化后的商户记录（接受某张礼品卡的门店/品牌）。
//
// 约束：
// - Name 必填；其他字段缺失时为空串（JSON 中省略）
// - StoreID 由 provider 给出，缺失时由 adapter 生成 UUID；跨 provider 不保证唯一
type Store struct {
	StoreID     string `json:"store_id"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Website     string `json:"website,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// CardType 是礼品卡形态标签。
type CardType string

const (
	CardDigital  CardType = "digital"
	CardPhysical CardType = "physical"
)

// Supplier 是每次抓取后重新构造的供应商记录（按 Name upsert）。
// 它从不原地修改：要么插入，要么整体覆盖同名记录。
type Supplier struct {
	Name        string     `json:"name"`
	Stores      []Store    `json:"stores"`
	Logo        string     `json:"logo"`
	Description string     `json:"description"`
	FromColor   string     `json:"fromColor"`
	ToColor     string     `json:"toColor"`
	CardTypes   []CardType `json:"cardTypes"`
}
