package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/catalog"
)

type favorite struct {
	createdAt time.Time
	seq       int
}

type catalogRepository struct {
	db     *DB
	favSeq int
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func copyProgram(prog *catalog.Program) catalog.Program {
	cp := *prog
	cp.CuratorIDs = append([]string(nil), prog.CuratorIDs...)
	sort.Strings(cp.CuratorIDs)
	cp.ModuleIDs = append([]string(nil), prog.ModuleIDs...)
	return cp
}

// Sections & Modules

func (repo *catalogRepository) CreateSection(_ context.Context, sec catalog.Section) (catalog.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sec.ID = newID()
	stored := sec
	repo.db.sections[sec.ID] = &stored
	return sec, nil
}

func (repo *catalogRepository) GetSection(_ context.Context, id string) (catalog.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sec, ok := repo.db.sections[id]; ok {
		return *sec, nil
	}
	return catalog.Section{}, catalog.ErrSectionNotFound
}

func (repo *catalogRepository) UpdateSection(_ context.Context, sec catalog.Section) (catalog.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.sections[sec.ID]
	if !ok {
		return catalog.Section{}, catalog.ErrSectionNotFound
	}
	orig.Name = sec.Name
	orig.Description = sec.Description
	return *orig, nil
}

// DeleteSection cascades the way the sql foreign keys do: modules with their assignments and
// materials, then programs with their enrollments, certificates and favorites.
func (repo *catalogRepository) DeleteSection(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[id]; !ok {
		return catalog.ErrSectionNotFound
	}
	delete(repo.db.sections, id)
	for modID, mod := range repo.db.modules {
		if mod.SectionID == id {
			repo.deleteModule(modID)
		}
	}
	for progID, prog := range repo.db.programs {
		if prog.SectionID == id {
			repo.deleteProgram(progID)
		}
	}
	return nil
}

// deleteModule must be called with the write lock held.
func (repo *catalogRepository) deleteModule(id string) {
	delete(repo.db.modules, id)
	for asgID, asg := range repo.db.assignments {
		if asg.ModuleID == id {
			repo.deleteAssignment(asgID)
		}
	}
	for matID, mat := range repo.db.materials {
		if mat.ModuleID == id {
			repo.deleteMaterial(matID)
		}
	}
	for _, prog := range repo.db.programs {
		kept := prog.ModuleIDs[:0]
		for _, modID := range prog.ModuleIDs {
			if modID != id {
				kept = append(kept, modID)
			}
		}
		prog.ModuleIDs = kept
	}
}

func (repo *catalogRepository) CreateModule(_ context.Context, mod catalog.Module) (catalog.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[mod.SectionID]; !ok {
		return catalog.Module{}, catalog.ErrSectionNotFound
	}
	mod.ID = newID()
	stored := mod
	repo.db.modules[mod.ID] = &stored
	return mod, nil
}

func (repo *catalogRepository) GetModule(_ context.Context, id string) (catalog.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if mod, ok := repo.db.modules[id]; ok {
		return *mod, nil
	}
	return catalog.Module{}, catalog.ErrModuleNotFound
}

// Programs

func (repo *catalogRepository) CreateProgram(_ context.Context, prog catalog.Program) (catalog.Program, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prog.ID = newID()
	stored := copyProgram(&prog)
	repo.db.programs[prog.ID] = &stored
	return copyProgram(&stored), nil
}

func (repo *catalogRepository) UpdateProgram(_ context.Context, prog catalog.Program) (catalog.Program, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.programs[prog.ID]
	if !ok {
		return catalog.Program{}, catalog.ErrProgramNotFound
	}
	prog.CreatedAt = orig.CreatedAt
	stored := copyProgram(&prog)
	repo.db.programs[prog.ID] = &stored
	return copyProgram(&stored), nil
}

// DeleteProgram cascades to the program's enrollments, certificates and favorites.
func (repo *catalogRepository) DeleteProgram(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.programs[id]; !ok {
		return catalog.ErrProgramNotFound
	}
	repo.deleteProgram(id)
	return nil
}

func (repo *catalogRepository) deleteProgram(id string) {
	delete(repo.db.programs, id)
	for enrID, enr := range repo.db.enrollments {
		if enr.ProgramID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	for certID, cert := range repo.db.certificates {
		if cert.ProgramID == id {
			delete(repo.db.certificates, certID)
		}
	}
	for key := range repo.db.favorites {
		if key.programID == id {
			delete(repo.db.favorites, key)
		}
	}
}

func (repo *catalogRepository) GetProgram(_ context.Context, id string) (catalog.Program, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prog, ok := repo.db.programs[id]; ok {
		return copyProgram(prog), nil
	}
	return catalog.Program{}, catalog.ErrProgramNotFound
}

func (repo *catalogRepository) ProgramExists(_ context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.programs[id]
	return ok, nil
}

func (repo *catalogRepository) ProgramInfo(_ context.Context, id string) (string, string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	prog, ok := repo.db.programs[id]
	if !ok {
		return "", "", catalog.ErrProgramNotFound
	}
	return prog.Name, prog.CertificateImage, nil
}

func (repo *catalogRepository) CountPrograms(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.programs), nil
}

// Assignments

func (repo *catalogRepository) CreateAssignment(_ context.Context, asg catalog.Assignment) (catalog.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[asg.ModuleID]; !ok {
		return catalog.Assignment{}, catalog.ErrModuleNotFound
	}
	asg.ID = newID()
	stored := asg
	repo.db.assignments[asg.ID] = &stored
	return asg, nil
}

func (repo *catalogRepository) UpdateAssignment(_ context.Context, asg catalog.Assignment) (catalog.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignments[asg.ID]
	if !ok {
		return catalog.Assignment{}, catalog.ErrAssignmentNotFound
	}
	orig.ModuleID = asg.ModuleID
	orig.Title = asg.Title
	orig.Description = asg.Description
	return *orig, nil
}

// DeleteAssignment cascades to the assignment's submissions.
func (repo *catalogRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return catalog.ErrAssignmentNotFound
	}
	repo.deleteAssignment(id)
	return nil
}

func (repo *catalogRepository) deleteAssignment(id string) {
	delete(repo.db.assignments, id)
	for subID, sub := range repo.db.submissions {
		if sub.AssignmentID == id {
			delete(repo.db.submissions, subID)
		}
	}
}

func (repo *catalogRepository) GetAssignment(_ context.Context, id string) (catalog.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return catalog.Assignment{}, catalog.ErrAssignmentNotFound
}

func (repo *catalogRepository) AssignmentExists(_ context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.assignments[id]
	return ok, nil
}

// Materials

func (repo *catalogRepository) CreateMaterial(_ context.Context, mat catalog.Material) (catalog.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[mat.ModuleID]; !ok {
		return catalog.Material{}, catalog.ErrModuleNotFound
	}
	mat.ID = newID()
	stored := mat
	repo.db.materials[mat.ID] = &stored
	return mat, nil
}

func (repo *catalogRepository) UpdateMaterial(_ context.Context, mat catalog.Material) (catalog.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.materials[mat.ID]
	if !ok {
		return catalog.Material{}, catalog.ErrMaterialNotFound
	}
	if _, ok = repo.db.modules[mat.ModuleID]; !ok {
		return catalog.Material{}, catalog.ErrModuleNotFound
	}
	mat.CreatedAt = orig.CreatedAt
	*orig = mat
	return mat, nil
}

// DeleteMaterial cascades to the material's progress.
func (repo *catalogRepository) DeleteMaterial(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.materials[id]; !ok {
		return catalog.ErrMaterialNotFound
	}
	repo.deleteMaterial(id)
	return nil
}

func (repo *catalogRepository) deleteMaterial(id string) {
	delete(repo.db.materials, id)
	for mpID, mp := range repo.db.progress {
		if mp.MaterialID == id {
			delete(repo.db.progress, mpID)
		}
	}
}

func (repo *catalogRepository) GetMaterial(_ context.Context, id string) (catalog.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if mat, ok := repo.db.materials[id]; ok {
		return *mat, nil
	}
	return catalog.Material{}, catalog.ErrMaterialNotFound
}

func (repo *catalogRepository) MaterialExists(_ context.Context, id string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.materials[id]
	return ok, nil
}

// Favorites

func (repo *catalogRepository) ToggleFavorite(_ context.Context, userID, programID string, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := favoriteKey{userID: userID, programID: programID}
	if _, ok := repo.db.favorites[key]; ok {
		delete(repo.db.favorites, key)
		return false, nil
	}
	repo.favSeq++
	repo.db.favorites[key] = &favorite{createdAt: at, seq: repo.favSeq}
	return true, nil
}

func (repo *catalogRepository) ListFavoriteProgramIDs(_ context.Context, userID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	type entry struct {
		programID string
		fav       *favorite
	}
	entries := make([]entry, 0)
	for key, fav := range repo.db.favorites {
		if key.userID == userID {
			entries = append(entries, entry{programID: key.programID, fav: fav})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].fav.seq < entries[j].fav.seq })

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.programID)
	}
	return ids, nil
}
