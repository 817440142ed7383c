package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// EnrollmentService registers new identities and keeps the local snapshot
// in step without a full refetch.
type EnrollmentService struct {
	store  store.IdentityStore
	cache  *cache.Cache
	shifts types.ShiftSchedule
	logger *log.Logger
}

func NewEnrollmentService(st store.IdentityStore, stateCache *cache.Cache, shifts types.ShiftSchedule, logger *log.Logger) *EnrollmentService {
	return &EnrollmentService{store: st, cache: stateCache, shifts: shifts, logger: logger}
}

// Enroll validates and registers one identity.  The descriptor must have the
// detector's fixed length and the shift, when set, must name a configured
// window.
func (s *EnrollmentService) Enroll(ctx context.Context, id types.Identity) (types.Identity, error) {
	id.EmployeeCode = strings.TrimSpace(id.EmployeeCode)
	id.Name = strings.TrimSpace(id.Name)
	id.NationalID = strings.TrimSpace(id.NationalID)

	if id.EmployeeCode == "" {
		return types.Identity{}, fmt.Errorf("enroll: employee code is required")
	}
	if id.Name == "" {
		return types.Identity{}, fmt.Errorf("enroll: name is required")
	}
	if id.NationalID == "" {
		return types.Identity{}, fmt.Errorf("enroll: national id is required")
	}
	if len(id.Descriptor) != types.DescriptorLength {
		return types.Identity{}, fmt.Errorf("enroll: descriptor must have %d components, got %d",
			types.DescriptorLength, len(id.Descriptor))
	}
	if id.Shift != "" && !s.shifts.Known(id.Shift) {
		return types.Identity{}, fmt.Errorf("enroll: unknown shift %q", id.Shift)
	}

	stored, err := s.store.InsertIdentity(ctx, id)
	if err != nil {
		return types.Identity{}, err
	}

	if err := s.cache.AddIdentity(stored); err != nil {
		// The remote insert succeeded; a cold cache just means the next
		// refresh picks the identity up.
		s.logger.Printf("enroll: cache update skipped: %v", err)
	}
	s.logger.Printf("enroll: registered employee=%s shift=%s", stored.EmployeeCode, stored.Shift)
	return stored, nil
}
