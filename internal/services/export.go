package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
	"go.uber.org/zap"
)

const exportPageSize = 100

// ExportService produces full roster CSV exports for teacher/admin
// dashboards. Unlike the search snapshot export, this walks every
// matching page server-side and archives the result to object storage.
type ExportService struct {
	profiles ProfileRepository
	storage  *storage.Storage
	log      *zap.SugaredLogger
}

func NewExportService(profiles ProfileRepository, objects *storage.Storage, log *zap.SugaredLogger) *ExportService {
	return &ExportService{profiles: profiles, storage: objects, log: log}
}

// ExportRoster renders all profiles matching the filter as CSV,
// archives a copy, and returns the bytes plus the archive key.
func (s *ExportService) ExportRoster(ctx context.Context, filter store.ProfileListFilter, requestedBy string) ([]byte, string, error) {
	filter.Offset = 0
	filter.Limit = exportPageSize

	var all []types.Profile
	for {
		page, total, err := s.profiles.List(ctx, filter)
		if err != nil {
			return nil, "", err
		}
		all = append(all, page...)
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			break
		}
	}

	data, err := RosterCSV(all)
	if err != nil {
		return nil, "", err
	}

	key := storage.ExportKey(requestedBy, time.Now())
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		return nil, "", err
	}
	s.log.Infow("roster exported", "rows", len(all), "key", key, "requested_by", requestedBy)

	return data, key, nil
}

// RosterCSV renders profiles into CSV with one row per profile and one
// column per ideology axis.
func RosterCSV(profiles []types.Profile) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := []string{"username", "full_name", "role", "completed", "opinion_plasticity", "profile_version", "created_at", "last_updated"}
	header = append(header, types.IdeologyAxes...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		row := []string{
			profile.User.Username,
			profile.User.FullName(),
			profile.User.Role,
			strconv.FormatBool(profile.IsCompleted),
			formatPlasticity(profile.OpinionPlasticity),
			strconv.Itoa(profile.ProfileVersion),
			profile.CreatedAt.UTC().Format(time.RFC3339),
			profile.LastUpdated.UTC().Format(time.RFC3339),
		}
		for _, axis := range types.IdeologyAxes {
			if score, ok := profile.IdeologyScores[axis]; ok {
				row = append(row, strconv.FormatFloat(score, 'f', 3, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatPlasticity(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
