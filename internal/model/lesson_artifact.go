package model

// LessonArtifact 交互式课程组件目录项，只描述元数据
// swagger:model LessonArtifact
type LessonArtifact struct {
	BaseModel
	Slug      string   `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Title     string   `gorm:"size:255;not null" json:"title"`
	Category  string   `gorm:"size:50;index" json:"category"`
	Summary   string   `gorm:"type:text" json:"summary"`
	Tags      []string `gorm:"serializer:json;type:json" json:"tags"`
	Order     int      `gorm:"column:sort_order;default:0" json:"order"`
	Published bool     `gorm:"index" json:"published"`
}

func (LessonArtifact) TableName() string {
	return "lesson_artifacts"
}
