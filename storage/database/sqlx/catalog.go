package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/catalog"
)

const programColumns = `id, section_id, name, description, goal, skills, certificate_image, created_at, updated_at`

type programRow struct {
	ID               string    `db:"id"`
	SectionID        string    `db:"section_id"`
	Name             string    `db:"name"`
	Description      string    `db:"description"`
	Goal             string    `db:"goal"`
	Skills           string    `db:"skills"`
	CertificateImage string    `db:"certificate_image"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// Sections & Modules

func (repo *catalogRepository) CreateSection(ctx context.Context, sec catalog.Section) (catalog.Section, error) {
	sec.ID = newID()
	_, err := exec(ctx, repo.db,
		"INSERT INTO sections (id, name, description, created_at) VALUES (?, ?, ?, ?)",
		sec.ID, sec.Name, sec.Description, sec.CreatedAt,
	)
	if err != nil {
		return catalog.Section{}, errors.Wrap(err, "inserting section")
	}
	return sec, nil
}

func (repo *catalogRepository) GetSection(ctx context.Context, id string) (catalog.Section, error) {
	var sec catalog.Section
	err := get(ctx, repo.db, &sec, "SELECT id, name, description, created_at FROM sections WHERE id = ?", id)
	return sec, trapNoRowsErr(err, catalog.ErrSectionNotFound)
}

func (repo *catalogRepository) UpdateSection(ctx context.Context, sec catalog.Section) (catalog.Section, error) {
	updated, err := exec(ctx, repo.db,
		"UPDATE sections SET name = ?, description = ? WHERE id = ?",
		sec.Name, sec.Description, sec.ID,
	)
	if err != nil {
		return catalog.Section{}, errors.Wrap(err, "updating section")
	}
	if updated == 0 {
		return catalog.Section{}, catalog.ErrSectionNotFound
	}
	return sec, nil
}

// DeleteSection relies on the ON DELETE CASCADE foreign keys down to submissions and progress.
func (repo *catalogRepository) DeleteSection(ctx context.Context, id string) error {
	deleted, err := exec(ctx, repo.db, "DELETE FROM sections WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	if deleted == 0 {
		return catalog.ErrSectionNotFound
	}
	return nil
}

func (repo *catalogRepository) CreateModule(ctx context.Context, mod catalog.Module) (catalog.Module, error) {
	mod.ID = newID()
	_, err := exec(ctx, repo.db,
		"INSERT INTO modules (id, section_id, name, description, position, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		mod.ID, mod.SectionID, mod.Name, mod.Description, mod.Position, mod.CreatedAt,
	)
	if err != nil {
		return catalog.Module{}, errors.Wrap(err, "inserting module")
	}
	return mod, nil
}

func (repo *catalogRepository) GetModule(ctx context.Context, id string) (catalog.Module, error) {
	var mod catalog.Module
	err := get(ctx, repo.db, &mod,
		"SELECT id, section_id, name, description, position, created_at FROM modules WHERE id = ?", id,
	)
	return mod, trapNoRowsErr(err, catalog.ErrModuleNotFound)
}

// Programs

func (repo *catalogRepository) setProgramLinks(ctx context.Context, tx *sqlx.Tx, prog catalog.Program) error {
	if _, err := exec(ctx, tx, "DELETE FROM program_curators WHERE program_id = ?", prog.ID); err != nil {
		return errors.Wrap(err, "deleting program curators")
	}
	for _, usrID := range prog.CuratorIDs {
		if _, err := exec(ctx, tx, "INSERT INTO program_curators (program_id, user_id) VALUES (?, ?)", prog.ID, usrID); err != nil {
			return errors.Wrap(err, "inserting program curator")
		}
	}

	if _, err := exec(ctx, tx, "DELETE FROM program_modules WHERE program_id = ?", prog.ID); err != nil {
		return errors.Wrap(err, "deleting program modules")
	}
	for pos, modID := range prog.ModuleIDs {
		_, err := exec(ctx, tx,
			"INSERT INTO program_modules (program_id, module_id, position) VALUES (?, ?, ?)",
			prog.ID, modID, pos,
		)
		if err != nil {
			return errors.Wrap(err, "inserting program module")
		}
	}
	return nil
}

func (repo *catalogRepository) CreateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	prog.ID = newID()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx,
			"INSERT INTO programs ("+programColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			prog.ID, prog.SectionID, prog.Name, prog.Description, prog.Goal, prog.Skills,
			prog.CertificateImage, prog.CreatedAt, prog.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting program")
		}
		return repo.setProgramLinks(ctx, tx, prog)
	})
	if err != nil {
		return catalog.Program{}, err
	}
	return prog, nil
}

func (repo *catalogRepository) UpdateProgram(ctx context.Context, prog catalog.Program) (catalog.Program, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		updated, err := exec(ctx, tx, `
			UPDATE programs
			SET section_id = ?, name = ?, description = ?, goal = ?, skills = ?, certificate_image = ?, updated_at = ?
			WHERE id = ?`,
			prog.SectionID, prog.Name, prog.Description, prog.Goal, prog.Skills, prog.CertificateImage,
			prog.UpdatedAt, prog.ID,
		)
		if err != nil {
			return errors.Wrap(err, "updating program")
		}
		if updated == 0 {
			return catalog.ErrProgramNotFound
		}
		return repo.setProgramLinks(ctx, tx, prog)
	})
	if err != nil {
		return catalog.Program{}, err
	}
	return prog, nil
}

func (repo *catalogRepository) DeleteProgram(ctx context.Context, id string) error {
	deleted, err := exec(ctx, repo.db, "DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting program")
	}
	if deleted == 0 {
		return catalog.ErrProgramNotFound
	}
	return nil
}

func (repo *catalogRepository) GetProgram(ctx context.Context, id string) (catalog.Program, error) {
	var row programRow
	if err := get(ctx, repo.db, &row, "SELECT "+programColumns+" FROM programs WHERE id = ?", id); err != nil {
		return catalog.Program{}, trapNoRowsErr(err, catalog.ErrProgramNotFound)
	}
	prog := catalog.Program{
		ID:               row.ID,
		SectionID:        row.SectionID,
		Name:             row.Name,
		Description:      row.Description,
		Goal:             row.Goal,
		Skills:           row.Skills,
		CertificateImage: row.CertificateImage,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}

	err := sel(ctx, repo.db, &prog.CuratorIDs,
		"SELECT user_id FROM program_curators WHERE program_id = ? ORDER BY user_id", id,
	)
	if err != nil {
		return catalog.Program{}, errors.Wrap(err, "selecting program curators")
	}
	err = sel(ctx, repo.db, &prog.ModuleIDs,
		"SELECT module_id FROM program_modules WHERE program_id = ? ORDER BY position", id,
	)
	if err != nil {
		return catalog.Program{}, errors.Wrap(err, "selecting program modules")
	}
	return prog, nil
}

func (repo *catalogRepository) ProgramExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, repo.db, "programs", id)
}

// ProgramInfo returns what a certificate prints about a program.
func (repo *catalogRepository) ProgramInfo(ctx context.Context, id string) (string, string, error) {
	var row programRow
	if err := get(ctx, repo.db, &row, "SELECT name, certificate_image FROM programs WHERE id = ?", id); err != nil {
		return "", "", trapNoRowsErr(err, catalog.ErrProgramNotFound)
	}
	return row.Name, row.CertificateImage, nil
}

func (repo *catalogRepository) CountPrograms(ctx context.Context) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM programs")
	return count, errors.Wrap(err, "counting programs")
}

// Assignments

func (repo *catalogRepository) CreateAssignment(ctx context.Context, asg catalog.Assignment) (catalog.Assignment, error) {
	asg.ID = newID()
	_, err := exec(ctx, repo.db,
		"INSERT INTO assignments (id, module_id, title, description, created_at) VALUES (?, ?, ?, ?, ?)",
		asg.ID, asg.ModuleID, asg.Title, asg.Description, asg.CreatedAt,
	)
	if err != nil {
		return catalog.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *catalogRepository) UpdateAssignment(ctx context.Context, asg catalog.Assignment) (catalog.Assignment, error) {
	updated, err := exec(ctx, repo.db,
		"UPDATE assignments SET module_id = ?, title = ?, description = ? WHERE id = ?",
		asg.ModuleID, asg.Title, asg.Description, asg.ID,
	)
	if err != nil {
		return catalog.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if updated == 0 {
		return catalog.Assignment{}, catalog.ErrAssignmentNotFound
	}
	return asg, nil
}

func (repo *catalogRepository) DeleteAssignment(ctx context.Context, id string) error {
	deleted, err := exec(ctx, repo.db, "DELETE FROM assignments WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if deleted == 0 {
		return catalog.ErrAssignmentNotFound
	}
	return nil
}

func (repo *catalogRepository) GetAssignment(ctx context.Context, id string) (catalog.Assignment, error) {
	var asg catalog.Assignment
	err := get(ctx, repo.db, &asg,
		"SELECT id, module_id, title, description, created_at FROM assignments WHERE id = ?", id,
	)
	return asg, trapNoRowsErr(err, catalog.ErrAssignmentNotFound)
}

func (repo *catalogRepository) AssignmentExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, repo.db, "assignments", id)
}

// Materials

func (repo *catalogRepository) CreateMaterial(ctx context.Context, mat catalog.Material) (catalog.Material, error) {
	mat.ID = newID()
	_, err := exec(ctx, repo.db, `
		INSERT INTO materials (id, module_id, title, file, description, file_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mat.ID, mat.ModuleID, mat.Title, mat.File, mat.Description, string(mat.FileType), mat.CreatedAt,
	)
	if err != nil {
		return catalog.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}

func (repo *catalogRepository) UpdateMaterial(ctx context.Context, mat catalog.Material) (catalog.Material, error) {
	updated, err := exec(ctx, repo.db,
		"UPDATE materials SET module_id = ?, title = ?, file = ?, description = ?, file_type = ? WHERE id = ?",
		mat.ModuleID, mat.Title, mat.File, mat.Description, string(mat.FileType), mat.ID,
	)
	if err != nil {
		return catalog.Material{}, errors.Wrap(err, "updating material")
	}
	if updated == 0 {
		return catalog.Material{}, catalog.ErrMaterialNotFound
	}
	return mat, nil
}

func (repo *catalogRepository) DeleteMaterial(ctx context.Context, id string) error {
	deleted, err := exec(ctx, repo.db, "DELETE FROM materials WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if deleted == 0 {
		return catalog.ErrMaterialNotFound
	}
	return nil
}

func (repo *catalogRepository) GetMaterial(ctx context.Context, id string) (catalog.Material, error) {
	var mat catalog.Material
	err := get(ctx, repo.db, &mat,
		"SELECT id, module_id, title, file, description, file_type, created_at FROM materials WHERE id = ?", id,
	)
	return mat, trapNoRowsErr(err, catalog.ErrMaterialNotFound)
}

func (repo *catalogRepository) MaterialExists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, repo.db, "materials", id)
}

// Favorites

func (repo *catalogRepository) ToggleFavorite(ctx context.Context, userID, programID string, at time.Time) (bool, error) {
	var favorite bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		deleted, err := exec(ctx, tx, "DELETE FROM favorites WHERE user_id = ? AND program_id = ?", userID, programID)
		if err != nil {
			return errors.Wrap(err, "deleting favorite")
		}
		if deleted > 0 {
			return nil
		}
		_, err = exec(ctx, tx, `
			INSERT INTO favorites (user_id, program_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (user_id, program_id) DO NOTHING`,
			userID, programID, at,
		)
		if err != nil {
			return errors.Wrap(err, "inserting favorite")
		}
		favorite = true
		return nil
	})
	return favorite, err
}

func (repo *catalogRepository) ListFavoriteProgramIDs(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	err := sel(ctx, repo.db, &ids, "SELECT program_id FROM favorites WHERE user_id = ? ORDER BY created_at", userID)
	return ids, errors.Wrap(err, "selecting favorites")
}
