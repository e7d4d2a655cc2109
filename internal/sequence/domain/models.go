package domain

// Counter holds the last value handed out for one named sequence.
type Counter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string { return "counters" }
