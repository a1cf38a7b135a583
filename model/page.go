package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page 分页参数，Number 从 1 开始
type Page struct {
	Number int `form:"page" json:"page"`
	Size   int `form:"size" json:"size"`
}

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}
