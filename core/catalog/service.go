package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrSectionNotFound    = core.NewNotFoundError("section")
	ErrModuleNotFound     = core.NewNotFoundError("module")
	ErrProgramNotFound    = core.NewNotFoundError("program")
	ErrAssignmentNotFound = core.NewNotFoundError("assignment")
	ErrMaterialNotFound   = core.NewNotFoundError("material")

	errModuleOutsideSection = "module does not belong to the program's section"
	errNotACurator          = "user is not a curator"

	managerRoles = []user.Role{user.RoleCurator, user.RoleAdmin}
)

type (
	Repository interface {
		CreateSection(ctx context.Context, sec Section) (Section, error)
		GetSection(ctx context.Context, id string) (Section, error)
		UpdateSection(ctx context.Context, sec Section) (Section, error)
		// DeleteSection cascades to the section's modules and programs, and everything hanging off them.
		DeleteSection(ctx context.Context, id string) error

		CreateModule(ctx context.Context, mod Module) (Module, error)
		GetModule(ctx context.Context, id string) (Module, error)

		// CreateProgram stores the program with its curators and syllabus.
		CreateProgram(ctx context.Context, prog Program) (Program, error)
		// UpdateProgram replaces the program fields, curators and syllabus.
		UpdateProgram(ctx context.Context, prog Program) (Program, error)
		DeleteProgram(ctx context.Context, id string) error
		GetProgram(ctx context.Context, id string) (Program, error)
		CountPrograms(ctx context.Context) (int, error)

		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		GetAssignment(ctx context.Context, id string) (Assignment, error)

		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		UpdateMaterial(ctx context.Context, mat Material) (Material, error)
		DeleteMaterial(ctx context.Context, id string) error
		GetMaterial(ctx context.Context, id string) (Material, error)

		// ToggleFavorite removes the favorite if present, adds it otherwise, atomically.
		// It returns whether the program is a favorite afterwards.
		ToggleFavorite(ctx context.Context, userID, programID string, at time.Time) (bool, error)
		ListFavoriteProgramIDs(ctx context.Context, userID string) ([]string, error)
	}

	UserGetter interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo  Repository
		users UserGetter
	}
)

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) CreateSection(ctx context.Context, actor user.Actor, ns NewSection) (Section, error) {
	if err := actor.Require("manage sections", managerRoles...); err != nil {
		return Section{}, err
	}
	return svc.repo.CreateSection(ctx, Section{
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) UpdateSection(ctx context.Context, actor user.Actor, id string, ns NewSection) (Section, error) {
	if err := actor.Require("manage sections", managerRoles...); err != nil {
		return Section{}, err
	}
	sec, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	sec.Name = ns.Name
	sec.Description = ns.Description
	return svc.repo.UpdateSection(ctx, sec)
}

func (svc *Service) DeleteSection(ctx context.Context, actor user.Actor, id string) error {
	if err := actor.Require("manage sections", managerRoles...); err != nil {
		return err
	}
	return svc.repo.DeleteSection(ctx, id)
}

func (svc *Service) GetSection(ctx context.Context, id string) (Section, error) {
	return svc.repo.GetSection(ctx, id)
}

func (svc *Service) CreateModule(ctx context.Context, actor user.Actor, nm NewModule) (Module, error) {
	if err := actor.Require("manage modules", managerRoles...); err != nil {
		return Module{}, err
	}
	if _, err := svc.repo.GetSection(ctx, nm.SectionID); err != nil {
		return Module{}, err
	}
	return svc.repo.CreateModule(ctx, Module{
		SectionID:   nm.SectionID,
		Name:        nm.Name,
		Description: nm.Description,
		Position:    nm.Position,
		CreatedAt:   time.Now().UTC(),
	})
}

// checkProgramInput enforces the references of a program: the section exists, every syllabus
// module belongs to that section and every curator holds the curator role.
func (svc *Service) checkProgramInput(ctx context.Context, pi ProgramInput) error {
	if _, err := svc.repo.GetSection(ctx, pi.SectionID); err != nil {
		return err
	}

	for _, modID := range pi.ModuleIDs {
		mod, err := svc.repo.GetModule(ctx, modID)
		if err != nil {
			if errors.Cause(err) == ErrModuleNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "module_ids", Error: err.Error()})
			}
			return errors.Wrap(err, "getting module")
		}
		if mod.SectionID != pi.SectionID {
			return core.NewValidationError(nil, core.FieldError{Field: "module_ids", Error: errModuleOutsideSection})
		}
	}

	for _, usrID := range pi.CuratorIDs {
		usr, err := svc.users.GetUserByID(ctx, usrID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "curator_ids", Error: err.Error()})
			}
			return errors.Wrap(err, "getting curator")
		}
		if !usr.HasRole(user.RoleCurator) {
			return core.NewValidationError(nil, core.FieldError{Field: "curator_ids", Error: errNotACurator})
		}
	}
	return nil
}

func (svc *Service) CreateProgram(ctx context.Context, actor user.Actor, pi ProgramInput) (Program, error) {
	if err := actor.Require("manage programs", managerRoles...); err != nil {
		return Program{}, err
	}
	if err := svc.checkProgramInput(ctx, pi); err != nil {
		return Program{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateProgram(ctx, Program{
		SectionID:        pi.SectionID,
		Name:             pi.Name,
		Description:      pi.Description,
		Goal:             pi.Goal,
		Skills:           pi.Skills,
		CertificateImage: pi.CertificateImage,
		CuratorIDs:       pi.CuratorIDs,
		ModuleIDs:        pi.ModuleIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) UpdateProgram(ctx context.Context, actor user.Actor, id string, pi ProgramInput) (Program, error) {
	if err := actor.Require("manage programs", managerRoles...); err != nil {
		return Program{}, err
	}
	prog, err := svc.repo.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	if err = svc.checkProgramInput(ctx, pi); err != nil {
		return Program{}, err
	}

	prog.SectionID = pi.SectionID
	prog.Name = pi.Name
	prog.Description = pi.Description
	prog.Goal = pi.Goal
	prog.Skills = pi.Skills
	prog.CertificateImage = pi.CertificateImage
	prog.CuratorIDs = pi.CuratorIDs
	prog.ModuleIDs = pi.ModuleIDs
	prog.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProgram(ctx, prog)
}

func (svc *Service) DeleteProgram(ctx context.Context, actor user.Actor, id string) error {
	if err := actor.Require("manage programs", managerRoles...); err != nil {
		return err
	}
	return svc.repo.DeleteProgram(ctx, id)
}

func (svc *Service) GetProgram(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *Service) CountPrograms(ctx context.Context) (int, error) {
	return svc.repo.CountPrograms(ctx)
}

func (svc *Service) CreateAssignment(ctx context.Context, actor user.Actor, ai AssignmentInput) (Assignment, error) {
	if err := actor.Require("manage assignments", managerRoles...); err != nil {
		return Assignment{}, err
	}
	if _, err := svc.repo.GetModule(ctx, ai.ModuleID); err != nil {
		return Assignment{}, err
	}
	return svc.repo.CreateAssignment(ctx, Assignment{
		ModuleID:    ai.ModuleID,
		Title:       ai.Title,
		Description: ai.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) UpdateAssignment(ctx context.Context, actor user.Actor, id string, ai AssignmentInput) (Assignment, error) {
	if err := actor.Require("manage assignments", managerRoles...); err != nil {
		return Assignment{}, err
	}
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = svc.repo.GetModule(ctx, ai.ModuleID); err != nil {
		return Assignment{}, err
	}
	asg.ModuleID = ai.ModuleID
	asg.Title = ai.Title
	asg.Description = ai.Description
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *Service) DeleteAssignment(ctx context.Context, actor user.Actor, id string) error {
	if err := actor.Require("manage assignments", managerRoles...); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) CreateMaterial(ctx context.Context, actor user.Actor, nm NewMaterial) (Material, error) {
	if err := actor.Require("manage materials", managerRoles...); err != nil {
		return Material{}, err
	}
	if _, err := svc.repo.GetModule(ctx, nm.ModuleID); err != nil {
		return Material{}, err
	}
	return svc.repo.CreateMaterial(ctx, Material{
		ModuleID:    nm.ModuleID,
		Title:       nm.Title,
		File:        nm.File,
		Description: nm.Description,
		FileType:    nm.FileType,
		CreatedAt:   time.Now().UTC(),
	})
}

// UpdateMaterial may move the material to another module; its view progress is kept.
func (svc *Service) UpdateMaterial(ctx context.Context, actor user.Actor, id string, nm NewMaterial) (Material, error) {
	if err := actor.Require("manage materials", managerRoles...); err != nil {
		return Material{}, err
	}
	mat, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return Material{}, err
	}
	if _, err = svc.repo.GetModule(ctx, nm.ModuleID); err != nil {
		return Material{}, err
	}
	mat.ModuleID = nm.ModuleID
	mat.Title = nm.Title
	mat.File = nm.File
	mat.Description = nm.Description
	mat.FileType = nm.FileType
	return svc.repo.UpdateMaterial(ctx, mat)
}

func (svc *Service) DeleteMaterial(ctx context.Context, actor user.Actor, id string) error {
	if err := actor.Require("manage materials", managerRoles...); err != nil {
		return err
	}
	return svc.repo.DeleteMaterial(ctx, id)
}

func (svc *Service) GetMaterial(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

// ToggleFavorite adds or removes a program from the participant's favorites.
func (svc *Service) ToggleFavorite(ctx context.Context, actor user.Actor, programID string) (bool, error) {
	if err := actor.Require("manage favorites", user.RoleParticipant); err != nil {
		return false, err
	}
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return false, err
	}
	return svc.repo.ToggleFavorite(ctx, actor.UserID, programID, time.Now().UTC())
}

func (svc *Service) Favorites(ctx context.Context, actor user.Actor) ([]string, error) {
	return svc.repo.ListFavoriteProgramIDs(ctx, actor.UserID)
}
