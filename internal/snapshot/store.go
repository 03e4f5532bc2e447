// Package snapshot persists per-district snapshot data on disk. One
// directory per logical snapshot date holds a metadata file plus one JSON
// document per district. Every write goes through a temp file and an
// atomic rename, so concurrent readers observe either the old or the new
// content, never a torn file. Absence is reported as nil results, not
// errors.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	apperrors "districtpulse/internal/errors"
	"districtpulse/internal/files"
	"districtpulse/pkg/contracts/domain"
)

const (
	metadataFile = "metadata.json"
	districtsDir = "districts"
)

// Store is the file-backed snapshot store.
type Store struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewStore creates a store rooted at the configured snapshots directory.
func NewStore(paths *config.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		paths:  paths,
		logger: logger.With(slog.String("component", "snapshot_store")),
	}
}

// Filter narrows ListSnapshots results. Zero fields match everything.
type Filter struct {
	Status domain.SnapshotStatus
	From   string
	To     string
}

// WriteMetadata persists snapshot metadata. When a closing-period snapshot
// already exists under the same id, the write only proceeds when the
// candidate was collected strictly later than the stored copy; otherwise it
// is skipped with a log line and ErrStaleWrite, never silently downgrading
// data.
func (s *Store) WriteMetadata(ctx context.Context, meta domain.SnapshotMetadata) error {
	if err := ValidateSnapshotID(meta.ID); err != nil {
		return err
	}

	stale, err := s.StaleClosingWrite(ctx, meta)
	if err != nil {
		return err
	}
	if stale {
		return fmt.Errorf("snapshot %s: %w", meta.ID, apperrors.ErrStaleWrite)
	}

	dir := s.paths.SnapshotDir(meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.StorageError("write_metadata", meta.ID, "", err)
	}
	if err := files.WriteJSONAtomic(filepath.Join(dir, metadataFile), meta); err != nil {
		return apperrors.StorageError("write_metadata", meta.ID, "", err)
	}
	return nil
}

// StaleClosingWrite reports whether writing meta would downgrade a stored
// closing-period snapshot. True when the stored metadata is closing-period
// and the candidate was not collected strictly later. A non-closing
// candidate's collection date is its logical date, so it can never displace
// the closing snapshot that reattributed onto the same id. Callers use
// this to skip an entire rerun before touching disk.
func (s *Store) StaleClosingWrite(ctx context.Context, meta domain.SnapshotMetadata) (bool, error) {
	existing, err := s.GetSnapshot(ctx, meta.ID)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.ClosingPeriod == nil {
		return false, nil
	}
	candidateCollected := meta.ID
	if meta.ClosingPeriod != nil {
		candidateCollected = meta.ClosingPeriod.CollectionDate
	}
	if collectedAfter(candidateCollected, existing.ClosingPeriod.CollectionDate) {
		return false, nil
	}
	s.logger.InfoContext(ctx, "skipping stale closing-period overwrite",
		slog.String("snapshot_id", meta.ID),
		slog.String("stored_collection_date", existing.ClosingPeriod.CollectionDate),
		slog.String("candidate_collection_date", candidateCollected))
	return true, nil
}

// WriteDistrict persists one district's payload within a snapshot. The
// write is an idempotent overwrite: storing identical content twice
// leaves the stored state unchanged.
func (s *Store) WriteDistrict(ctx context.Context, snapshotID string, data domain.DistrictSnapshot) error {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return err
	}
	if err := ValidateDistrictID(data.DistrictID); err != nil {
		return err
	}

	dir := filepath.Join(s.paths.SnapshotDir(snapshotID), districtsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.StorageError("write_district", snapshotID, data.DistrictID, err)
	}
	if err := files.WriteJSONAtomic(filepath.Join(dir, data.DistrictID+".json"), data); err != nil {
		return apperrors.StorageError("write_district", snapshotID, data.DistrictID, err)
	}

	s.logger.DebugContext(ctx, "district snapshot written",
		slog.String("snapshot_id", snapshotID),
		slog.String("district_id", data.DistrictID))
	return nil
}

// GetSnapshot loads snapshot metadata. A missing snapshot returns
// (nil, nil): absence is data, not failure.
func (s *Store) GetSnapshot(ctx context.Context, snapshotID string) (*domain.SnapshotMetadata, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.paths.SnapshotDir(snapshotID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("get_snapshot", snapshotID, "", err)
	}

	var meta domain.SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, apperrors.CorruptionError(s.paths.SnapshotDir(snapshotID), err)
	}
	return &meta, nil
}

// GetDistrict loads one district's payload; (nil, nil) when absent.
func (s *Store) GetDistrict(ctx context.Context, snapshotID, districtID string) (*domain.DistrictSnapshot, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	if err := ValidateDistrictID(districtID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.paths.SnapshotDir(snapshotID), districtsDir, districtID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("get_district", snapshotID, districtID, err)
	}

	var snap domain.DistrictSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.CorruptionError(path, err)
	}
	return &snap, nil
}

// GetLatestSuccessful returns the metadata of the newest snapshot whose
// run completed (fully or partially), or (nil, nil) when the store holds
// none. Partial snapshots still serve; their per-district gaps surface as
// absence downstream.
func (s *Store) GetLatestSuccessful(ctx context.Context) (*domain.SnapshotMetadata, error) {
	ids, err := s.snapshotIDs()
	if err != nil {
		return nil, err
	}

	// Snapshot ids are dates, so lexical descending is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	for _, id := range ids {
		meta, err := s.GetSnapshot(ctx, id)
		if err != nil {
			if apperrors.IsCorruption(err) {
				s.logger.WarnContext(ctx, "skipping corrupt snapshot metadata",
					slog.String("snapshot_id", id))
				continue
			}
			return nil, err
		}
		if meta == nil {
			continue
		}
		if meta.Status == domain.SnapshotComplete || meta.Status == domain.SnapshotPartial {
			return meta, nil
		}
	}
	return nil, nil
}

// ListSnapshots returns metadata for every snapshot matching the filter,
// ordered oldest first.
func (s *Store) ListSnapshots(ctx context.Context, filter Filter) ([]domain.SnapshotMetadata, error) {
	ids, err := s.snapshotIDs()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var out []domain.SnapshotMetadata
	for _, id := range ids {
		if filter.From != "" && id < filter.From {
			continue
		}
		if filter.To != "" && id > filter.To {
			continue
		}
		meta, err := s.GetSnapshot(ctx, id)
		if err != nil || meta == nil {
			if err != nil && !apperrors.IsCorruption(err) {
				return nil, err
			}
			continue
		}
		if filter.Status != "" && meta.Status != filter.Status {
			continue
		}
		out = append(out, *meta)
	}
	return out, nil
}

// ListDistricts names every district stored in a snapshot, sorted; empty
// when the snapshot does not exist.
func (s *Store) ListDistricts(ctx context.Context, snapshotID string) ([]string, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.paths.SnapshotDir(snapshotID), districtsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("list_districts", snapshotID, "", err)
	}

	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadDistrictHistory gathers one district's payloads across all stored
// snapshots, ordered by snapshot date ascending. Snapshots that do not
// contain the district are skipped.
func (s *Store) LoadDistrictHistory(ctx context.Context, districtID string) ([]domain.DistrictSnapshot, error) {
	if err := ValidateDistrictID(districtID); err != nil {
		return nil, err
	}

	ids, err := s.snapshotIDs()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var out []domain.DistrictSnapshot
	for _, id := range ids {
		snap, err := s.GetDistrict(ctx, id, districtID)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			out = append(out, *snap)
		}
	}
	return out, nil
}

// DeleteSnapshot removes a snapshot directory. It reports false when the
// snapshot did not exist. Pruning the snapshot's time-series entries is
// the caller's responsibility (the pipeline cascades both).
func (s *Store) DeleteSnapshot(ctx context.Context, snapshotID string) (bool, error) {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return false, err
	}

	dir := s.paths.SnapshotDir(snapshotID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, apperrors.StorageError("delete_snapshot", snapshotID, "", err)
	}

	s.logger.InfoContext(ctx, "snapshot deleted", slog.String("snapshot_id", snapshotID))
	return true, nil
}

func (s *Store) snapshotIDs() ([]string, error) {
	entries, err := os.ReadDir(s.paths.SnapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.StorageError("list_snapshots", "", "", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// collectedAfter reports whether candidate is a strictly newer collection
// date than stored. Unparseable dates compare lexically, which matches
// chronological order for the canonical layout.
func collectedAfter(candidate, stored string) bool {
	c, errC := time.Parse(closing.DateLayout, candidate)
	s, errS := time.Parse(closing.DateLayout, stored)
	if errC != nil || errS != nil {
		return candidate > stored
	}
	return c.After(s)
}

