package models

// Settings — единственная строка конфигурации приложения.
// K-фактор хранится в БД, а не в памяти процесса, чтобы переживать
// рестарты и быть согласованным между инстансами.
type Settings struct {
	ID      int `json:"id" db:"id"`
	KFactor int `json:"k_factor" db:"k_factor"`
}

const (
	DefaultKFactor = 50
	MinKFactor     = 1
	MaxKFactor     = 100
)
