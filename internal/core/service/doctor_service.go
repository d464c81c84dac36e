package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// DoctorService serves the bookable doctor catalogue.
type DoctorService struct {
	remote remote
	logger zerolog.Logger
}

func NewDoctorService(dir ports.RemoteDirectory, opts Options, logger zerolog.Logger) *DoctorService {
	opts = opts.withDefaults()
	return &DoctorService{remote: newRemote(dir, opts), logger: logger}
}

// List returns the catalogue ordered by name, optionally narrowed to one
// speciality.
func (s *DoctorService) List(ctx context.Context, speciality string) ([]domain.Doctor, error) {
	var filters []ports.Filter
	if sp := strings.TrimSpace(speciality); sp != "" {
		filters = append(filters, ports.Eq("speciality", sp))
	}

	docs, err := s.remote.query(ctx, ports.CollectionDoctors, filters...)
	if err != nil {
		return nil, classifyRemote("list doctors", err)
	}

	doctors := make([]domain.Doctor, 0, len(docs))
	for _, doc := range docs {
		doctors = append(doctors, domain.DoctorFromFields(doc.ID, doc.Fields))
	}
	sort.SliceStable(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	return doctors, nil
}

func (s *DoctorService) Get(ctx context.Context, id string) (*domain.Doctor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.InvalidInput("doctor id is required")
	}
	doc, err := s.remote.get(ctx, ports.CollectionDoctors, id)
	if err != nil {
		return nil, classifyRemote("get doctor", err)
	}
	d := domain.DoctorFromFields(doc.ID, doc.Fields)
	return &d, nil
}

// Add stores a new catalogue entry and returns it with its assigned id.
func (s *DoctorService) Add(ctx context.Context, doctor domain.Doctor) (*domain.Doctor, error) {
	if err := doctor.Validate(); err != nil {
		return nil, err
	}
	id, err := s.remote.add(ctx, ports.CollectionDoctors, doctor.Fields())
	if err != nil {
		return nil, classifyRemote("add doctor", err)
	}
	doctor.ID = id
	s.logger.Info().Str("doctor_id", id).Str("speciality", doctor.Speciality).Msg("doctor added")
	return &doctor, nil
}
