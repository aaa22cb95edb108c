package services

import (
	"context"

	"github.com/apex/log"

	"roadwatch-be/apperror"
	"roadwatch-be/cache"
	"roadwatch-be/models"
	"roadwatch-be/stores"
)

// VerificationService owns the vote ledger and the consensus aggregation
// over it. The report's verifiedBy array is a rebuildable projection of the
// ledger, maintained in exactly one place (CastVote).
type VerificationService struct {
	verifications stores.VerificationStore
	reports       stores.ReportStore
	users         stores.UserDirectory
	cache         *cache.ReportCache
}

func NewVerificationService(
	verifications stores.VerificationStore,
	reports stores.ReportStore,
	users stores.UserDirectory,
	reportCache *cache.ReportCache,
) *VerificationService {
	return &VerificationService{
		verifications: verifications,
		reports:       reports,
		users:         users,
		cache:         reportCache,
	}
}

// ConsensusDetail groups the voters behind one vote status.
type ConsensusDetail struct {
	Status   models.VerificationStatus `json:"status"`
	Count    int                       `json:"count"`
	VoterIDs []string                  `json:"voterIds"`
}

// ConsensusSummary aggregates all votes on one report. statusCounts always
// carries every status key, zero-filled when nobody voted that way.
type ConsensusSummary struct {
	PotholeID          string                            `json:"potholeId"`
	TotalVerifications int                               `json:"totalVerifications"`
	StatusCounts       map[models.VerificationStatus]int `json:"statusCounts"`
	Details            []ConsensusDetail                 `json:"details"`
}

// CastVote records one user's corroboration of a report. Vote row first,
// then the verifiedBy projection, then cache invalidation. The projection
// append is best-effort; the ledger row is the source of truth.
func (s *VerificationService) CastVote(ctx context.Context, reportID, voterID, status string) (*models.Verification, error) {
	if !models.ValidVerificationStatus(status) {
		return nil, apperror.InvalidInput("%s is not a valid verification status", status)
	}

	rid, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return nil, err
	}
	uid, err := parseObjectID(voterID, "user ID")
	if err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, uid)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to look up user")
	}
	if !exists {
		return nil, apperror.NotFound("User not found")
	}

	report, err := s.reports.FindByID(ctx, rid)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to retrieve report")
	}
	if report == nil {
		return nil, apperror.NotFound("Report not found")
	}

	voted, err := s.verifications.HasVoted(ctx, rid, uid)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to check existing verification")
	}
	if voted {
		return nil, apperror.Conflict("User has already verified this report")
	}

	verification, err := s.verifications.Insert(ctx, &models.Verification{
		PotholeID: rid,
		UserID:    uid,
		Status:    models.VerificationStatus(status),
	})
	if err != nil {
		if apperror.IsConflict(err) {
			return nil, err
		}
		return nil, apperror.Internal(err, "Failed to record verification")
	}

	if err := s.reports.AppendVerifier(ctx, rid, uid); err != nil {
		log.WithError(err).WithField("report", reportID).Warn("verifiedBy projection append failed")
	}

	s.cache.InvalidateReport(ctx, reportID)
	return verification, nil
}

// GetConsensus aggregates the ledger for one report. Zero votes is NotFound.
func (s *VerificationService) GetConsensus(ctx context.Context, reportID string) (*ConsensusSummary, error) {
	rid, err := parseObjectID(reportID, "report ID")
	if err != nil {
		return nil, err
	}

	verifications, err := s.verifications.ListByReport(ctx, rid)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to retrieve verifications")
	}
	if len(verifications) == 0 {
		return nil, apperror.NotFound("No verifications found for this report")
	}

	counts := make(map[models.VerificationStatus]int, len(models.AllVerificationStatuses))
	voters := make(map[models.VerificationStatus][]string)
	for _, status := range models.AllVerificationStatuses {
		counts[status] = 0
	}
	for _, v := range verifications {
		counts[v.Status]++
		voters[v.Status] = append(voters[v.Status], v.UserID.Hex())
	}

	details := make([]ConsensusDetail, 0, len(voters))
	for _, status := range models.AllVerificationStatuses {
		if counts[status] == 0 {
			continue
		}
		details = append(details, ConsensusDetail{
			Status:   status,
			Count:    counts[status],
			VoterIDs: voters[status],
		})
	}

	return &ConsensusSummary{
		PotholeID:          reportID,
		TotalVerifications: len(verifications),
		StatusCounts:       counts,
		Details:            details,
	}, nil
}
