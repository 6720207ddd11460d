package lawyers

import "context"

const recommendLimit = 3

// Service contains recommendation logic for lawyers.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Recommend returns up to three verified lawyers specialized in caseType.
// When no specialization matches it falls back to the overall top verified
// lawyers: as long as any verified lawyer exists the result is never empty.
func (s *Service) Recommend(ctx context.Context, caseType string) ([]Lawyer, error) {
	matched, err := s.Repo.ListVerifiedBySpecialization(ctx, caseType, recommendLimit)
	if err != nil {
		return nil, err
	}
	if len(matched) > 0 {
		return matched, nil
	}
	return s.Repo.ListTopVerified(ctx, recommendLimit)
}
