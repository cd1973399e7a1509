package model

// swagger:model PersonalFile
type PersonalFile struct {
	UUIDBase
	UserID      uint   `gorm:"index;type:bigint unsigned" json:"user_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Content     string `gorm:"type:longtext" json:"content,omitempty"` // 文本笔记
	ObjectKey   string `gorm:"size:255" json:"-"`                      // 上传文件在存储中的路径
	URL         string `gorm:"size:500" json:"url,omitempty"`
	ContentType string `gorm:"size:100" json:"content_type"`
	Size        int64  `json:"size"`
}

func (PersonalFile) TableName() string {
	return "personal_files"
}

func (f *PersonalFile) IsUpload() bool {
	return f.ObjectKey != ""
}
