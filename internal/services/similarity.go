package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

var ErrReportNotFound = errors.New("bug report not found")
var ErrInvalidSuggestionType = errors.New("invalid suggestion type")

// SimilarityPolicy holds the tunable two-tier thresholds. Scores at or above
// DuplicateThreshold classify as possible_duplicate, at or above
// RelatedThreshold as related, below that the candidate is discarded.
type SimilarityPolicy struct {
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
	RelatedThreshold   float64 `yaml:"related_threshold"`
	MaxPerBucket       int     `yaml:"max_per_bucket"`
}

func DefaultSimilarityPolicy() SimilarityPolicy {
	return SimilarityPolicy{
		DuplicateThreshold: 0.85,
		RelatedThreshold:   0.70,
		MaxPerBucket:       5,
	}
}

// LoadSimilarityPolicy reads thresholds from a YAML file, falling back to the
// defaults for any unset value.
func LoadSimilarityPolicy(path string) (SimilarityPolicy, error) {
	policy := DefaultSimilarityPolicy()
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read similarity policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("parse similarity policy: %w", err)
	}
	return policy, nil
}

func (p SimilarityPolicy) normalized(log *logger.Logger) SimilarityPolicy {
	if p.MaxPerBucket <= 0 {
		p.MaxPerBucket = DefaultSimilarityPolicy().MaxPerBucket
	}
	// The duplicate threshold can never sit below the related one.
	if p.DuplicateThreshold < p.RelatedThreshold {
		if log != nil {
			log.Warn("duplicate threshold below related threshold, raising it",
				"duplicate", p.DuplicateThreshold, "related", p.RelatedThreshold)
		}
		p.DuplicateThreshold = p.RelatedThreshold
	}
	return p
}

// SimilarBugEntry is one candidate in a similarity bucket.
type SimilarBugEntry struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	ApplicationName string    `json:"application_name"`
	Score           float64   `json:"score"`
	CreatedAt       time.Time `json:"created_at"`
}

// SimilarityResult distinguishes "no embedding yet" from "embedding exists, no
// matches": HasEmbedding false means the subject was not analyzed yet.
type SimilarityResult struct {
	HasEmbedding       bool              `json:"has_embedding"`
	PossibleDuplicates []SimilarBugEntry `json:"possible_duplicates"`
	RelatedBugs        []SimilarBugEntry `json:"related_bugs"`
}

type SimilarityService interface {
	FindSimilar(ctx context.Context, orgID, bugID uuid.UUID) (*SimilarityResult, error)
	Dismiss(ctx context.Context, orgID, subjectID, candidateID uuid.UUID, suggestionType string, dismissedBy *uuid.UUID) error
}

type similarityService struct {
	db              *gorm.DB
	log             *logger.Logger
	bugReportRepo   repos.BugReportRepo
	dismissalRepo   repos.SuggestionDismissalRepo
	applicationRepo repos.ApplicationRepo
	policy          SimilarityPolicy
}

func NewSimilarityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bugReportRepo repos.BugReportRepo,
	dismissalRepo repos.SuggestionDismissalRepo,
	applicationRepo repos.ApplicationRepo,
	policy SimilarityPolicy,
) SimilarityService {
	log := baseLog.With("service", "SimilarityService")
	return &similarityService{
		db:              db,
		log:             log,
		bugReportRepo:   bugReportRepo,
		dismissalRepo:   dismissalRepo,
		applicationRepo: applicationRepo,
		policy:          policy.normalized(log),
	}
}

func (s *similarityService) FindSimilar(ctx context.Context, orgID, bugID uuid.UUID) (*SimilarityResult, error) {
	subject, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, bugID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load subject report: %w", err)
	}

	subjectVec, ok := decodeEmbedding(subject.Embedding)
	if !ok {
		// Not yet analyzed: a valid state, not an empty result.
		return &SimilarityResult{HasEmbedding: false}, nil
	}

	// Tenant isolation happens in the query itself: candidates only ever come
	// from the subject's organization.
	candidates, err := s.bugReportRepo.ListEmbeddedByOrganization(ctx, nil, orgID, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("load candidate reports: %w", err)
	}

	dismissals, err := s.dismissalRepo.ListByBugReport(ctx, nil, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("load dismissals: %w", err)
	}
	dismissed := make(map[string]bool, len(dismissals))
	for _, d := range dismissals {
		dismissed[d.SuggestedBugReportID.String()+"|"+d.SuggestionType] = true
	}

	var duplicates, related []scoredReport
	for _, candidate := range candidates {
		candidateVec, ok := decodeEmbedding(candidate.Embedding)
		if !ok || len(candidateVec) != len(subjectVec) {
			// Mismatched dimensionality must never be compared.
			continue
		}
		score := cosineSimilarity(subjectVec, candidateVec)
		switch {
		case score >= s.policy.DuplicateThreshold:
			if !dismissed[candidate.ID.String()+"|"+types.SuggestionTypeDuplicate] {
				duplicates = append(duplicates, scoredReport{report: candidate, score: score})
			}
		case score >= s.policy.RelatedThreshold:
			if !dismissed[candidate.ID.String()+"|"+types.SuggestionTypeRelated] {
				related = append(related, scoredReport{report: candidate, score: score})
			}
		}
	}

	orderAndTrim := func(entries []scoredReport) []scoredReport {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].score != entries[j].score {
				return entries[i].score > entries[j].score
			}
			return entries[i].report.CreatedAt.After(entries[j].report.CreatedAt)
		})
		if len(entries) > s.policy.MaxPerBucket {
			entries = entries[:s.policy.MaxPerBucket]
		}
		return entries
	}
	duplicates = orderAndTrim(duplicates)
	related = orderAndTrim(related)

	appNames, err := s.applicationNames(ctx, duplicates, related)
	if err != nil {
		s.log.Warn("application name lookup failed", "error", err)
		appNames = map[uuid.UUID]string{}
	}

	toEntries := func(entries []scoredReport) []SimilarBugEntry {
		out := make([]SimilarBugEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, SimilarBugEntry{
				ID:              e.report.ID,
				Title:           e.report.Title,
				Status:          e.report.Status,
				ApplicationName: appNames[e.report.ApplicationID],
				Score:           e.score,
				CreatedAt:       e.report.CreatedAt,
			})
		}
		return out
	}

	return &SimilarityResult{
		HasEmbedding:       true,
		PossibleDuplicates: toEntries(duplicates),
		RelatedBugs:        toEntries(related),
	}, nil

}

type scoredReport struct {
	report *types.BugReport
	score  float64
}

func (s *similarityService) applicationNames(ctx context.Context, buckets ...[]scoredReport) (map[uuid.UUID]string, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, bucket := range buckets {
		for _, e := range bucket {
			if !seen[e.report.ApplicationID] {
				seen[e.report.ApplicationID] = true
				ids = append(ids, e.report.ApplicationID)
			}
		}
	}
	apps, err := s.applicationRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(apps))
	for _, app := range apps {
		names[app.ID] = app.Name
	}
	return names, nil
}

func (s *similarityService) Dismiss(ctx context.Context, orgID, subjectID, candidateID uuid.UUID, suggestionType string, dismissedBy *uuid.UUID) error {
	if suggestionType != types.SuggestionTypeDuplicate && suggestionType != types.SuggestionTypeRelated {
		return ErrInvalidSuggestionType
	}
	// Both ends of the pair must belong to the caller's organization.
	if _, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("load subject report: %w", err)
	}
	if _, err := s.bugReportRepo.GetByIDForOrganization(ctx, nil, orgID, candidateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("load candidate report: %w", err)
	}
	return s.dismissalRepo.Create(ctx, nil, &types.SuggestionDismissal{
		BugReportID:          subjectID,
		SuggestedBugReportID: candidateID,
		SuggestionType:       suggestionType,
		DismissedByUserID:    dismissedBy,
	})
}

func decodeEmbedding(raw []byte) ([]float32, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// cosineSimilarity returns the cosine of two vectors clamped to [0,1]; higher
// means more similar.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
