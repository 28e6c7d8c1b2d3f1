package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeVideo FileType = "video"
	FileTypeDoc   FileType = "doc"
	FileTypeOther FileType = "other"
)

// Section is a top-level subject area grouping modules and programs.
type Section struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Module struct {
	ID          string    `json:"id" db:"id"`
	SectionID   string    `json:"section_id" db:"section_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Position    int       `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Program is a curated course scoped to a Section.
//
// ModuleIDs is the ordered syllabus shown to participants. It is always a subset of the
// section's modules; the assignments required for completion are those of every module of
// the section, see completion.Evaluator.
type Program struct {
	ID               string    `json:"id"`
	SectionID        string    `json:"section_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Goal             string    `json:"goal"`
	Skills           string    `json:"skills"`
	CertificateImage string    `json:"certificate_image"`
	CuratorIDs       []string  `json:"curator_ids"`
	ModuleIDs        []string  `json:"module_ids"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p Program) HasCurator(userID string) bool {
	for _, id := range p.CuratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID          string    `json:"id" db:"id"`
	ModuleID    string    `json:"module_id" db:"module_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Material struct {
	ID          string    `json:"id" db:"id"`
	ModuleID    string    `json:"module_id" db:"module_id"`
	Title       string    `json:"title" db:"title"`
	File        string    `json:"file" db:"file"` // reference to the stored file
	Description string    `json:"description" db:"description"`
	FileType    FileType  `json:"file_type" db:"file_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type NewSection struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

type NewModule struct {
	SectionID   string `json:"section_id" validate:"required"`
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Position    int    `json:"position" validate:"min=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// ProgramInput is used both to create and to replace a Program.
type ProgramInput struct {
	SectionID        string   `json:"section_id" validate:"required"`
	Name             string   `json:"name" validate:"required,notblank,max=255"`
	Description      string   `json:"description"`
	Goal             string   `json:"goal"`
	Skills           string   `json:"skills"`
	CertificateImage string   `json:"certificate_image" validate:"max=255"`
	CuratorIDs       []string `json:"curator_ids" validate:"omitempty,unique"`
	ModuleIDs        []string `json:"module_ids" validate:"omitempty,unique"`
}

func (pi *ProgramInput) Validate(validate *validator.Validate) error {
	pi.Name = core.CleanString(pi.Name)
	pi.Description = core.CleanString(pi.Description)
	pi.Goal = core.CleanString(pi.Goal)
	pi.Skills = core.CleanString(pi.Skills)
	pi.CertificateImage = core.CleanString(pi.CertificateImage)
	return validate.Struct(pi)
}

type AssignmentInput struct {
	ModuleID    string `json:"module_id" validate:"required"`
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
}

func (ai *AssignmentInput) Validate(validate *validator.Validate) error {
	ai.Title = core.CleanString(ai.Title)
	ai.Description = core.CleanString(ai.Description)
	return validate.Struct(ai)
}

type NewMaterial struct {
	ModuleID    string   `json:"module_id" validate:"required"`
	Title       string   `json:"title" validate:"required,notblank,max=255"`
	File        string   `json:"file" validate:"max=255"`
	Description string   `json:"description"`
	FileType    FileType `json:"file_type" validate:"omitempty,oneof=pdf video doc other"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.File = core.CleanString(nm.File)
	nm.Description = core.CleanString(nm.Description)
	if nm.FileType == "" {
		nm.FileType = FileTypeOther
	}
	return validate.Struct(nm)
}
