package models

// ModuleKind is the presentation of a learning module.
type ModuleKind string

const (
	ModuleText  ModuleKind = "text"
	ModuleVideo ModuleKind = "video"
)

// LearningModule is a static piece of educational content.
type LearningModule struct {
	ID        int        `json:"moduleId" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Content   string     `json:"content" yaml:"content"`
	Kind      ModuleKind `json:"type" yaml:"kind"`
	Completed bool       `json:"completed" yaml:"-"`
}
