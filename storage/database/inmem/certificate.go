package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) Issue(_ context.Context, userID, programID string, at time.Time) (certificate.Certificate, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cert := range repo.db.certificates {
		if cert.UserID == userID && cert.ProgramID == programID {
			return *cert, false, nil
		}
	}
	cert := certificate.Certificate{ID: newID(), UserID: userID, ProgramID: programID, IssuedAt: at}
	stored := cert
	repo.db.certificates[cert.ID] = &stored
	return cert, true, nil
}

func (repo *certificateRepository) GetCertificate(_ context.Context, id string) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cert, ok := repo.db.certificates[id]; ok {
		return *cert, nil
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) ListUserCertificates(_ context.Context, userID string) ([]certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	certs := make([]certificate.Certificate, 0)
	for _, cert := range repo.db.certificates {
		if cert.UserID == userID {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool {
		if certs[i].IssuedAt.Equal(certs[j].IssuedAt) {
			return certs[i].ID < certs[j].ID
		}
		return certs[i].IssuedAt.Before(certs[j].IssuedAt)
	})
	return certs, nil
}

func (repo *certificateRepository) CountCertificates(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.certificates), nil
}
