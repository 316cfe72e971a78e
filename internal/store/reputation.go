package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReputationPolicy holds the tunable coefficients of the threat score. The
// exact weights are policy, not contract; config can override them.
type ReputationPolicy struct {
	PublicBaseScore    int
	FailedLoginWeight  int
	FailedLoginCap     int
	BanWeight          int
	BanCap             int
	BlacklistThreshold int
}

func DefaultReputationPolicy() ReputationPolicy {
	return ReputationPolicy{
		PublicBaseScore:    10,
		FailedLoginWeight:  5,
		FailedLoginCap:     30,
		BanWeight:          20,
		BanCap:             40,
		BlacklistThreshold: 70,
	}
}

// Score computes the bounded threat score for a profile. Loopback and
// private addresses always score zero; public addresses start at the base
// score and accumulate weighted, capped activity penalties.
func (p ReputationPolicy) Score(r IPReputation) int {
	if r.Type == "localhost" || r.Type == "private" {
		return 0
	}
	score := p.PublicBaseScore
	score += capped(int(r.FailedLoginCount)*p.FailedLoginWeight, p.FailedLoginCap)
	score += capped(int(r.BannedCount)*p.BanWeight, p.BanCap)
	if score > 100 {
		score = 100
	}
	return score
}

func capped(v, cap int) int {
	if v > cap {
		return cap
	}
	return v
}

// SetReputationPolicy replaces the scoring policy. Call before the scheduler
// starts; the policy is not safe to swap under concurrent writes.
func (s *Store) SetReputationPolicy(p ReputationPolicy) {
	s.policy = p
}

// updateIPReputation is the read-modify-write for one IP inside the
// RecordTrace transaction. The single writer connection serializes updates
// for the same IP, so increments arriving in quick succession never lose
// writes. The blacklist flag is monotonic: once set it is never cleared,
// even if the recomputed score later drops below the threshold.
func (s *Store) updateIPReputation(ctx context.Context, tx *sql.Tx, delta ReputationDelta, now int64) error {
	if delta.IP == "" {
		return nil
	}

	var r IPReputation
	var blacklisted int
	err := tx.QueryRowContext(ctx, `
SELECT ip, type, is_blacklisted, threat_score, first_seen, last_seen,
  total_events, failed_login_count, successful_login_count, banned_count
FROM ip_reputation WHERE ip = ?
`, delta.IP).Scan(
		&r.IP, &r.Type, &blacklisted, &r.ThreatScore, &r.FirstSeen, &r.LastSeen,
		&r.TotalEvents, &r.FailedLoginCount, &r.SuccessfulLoginCount, &r.BannedCount,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r = IPReputation{
			IP:        delta.IP,
			Type:      delta.AddressType,
			FirstSeen: now,
		}
	case err != nil:
		return fmt.Errorf("load reputation: %w", err)
	default:
		r.IsBlacklisted = blacklisted != 0
	}
	if r.Type == "" {
		r.Type = "public"
	}

	r.TotalEvents++
	switch delta.Action {
	case "failed_login":
		r.FailedLoginCount++
	case "ban":
		r.BannedCount++
	case "successful_login":
		r.SuccessfulLoginCount++
	}
	r.LastSeen = now
	r.ThreatScore = s.policy.Score(r)
	if r.ThreatScore >= s.policy.BlacklistThreshold {
		r.IsBlacklisted = true
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO ip_reputation (
  ip, type, is_blacklisted, threat_score, first_seen, last_seen,
  total_events, failed_login_count, successful_login_count, banned_count, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ip) DO UPDATE SET
  is_blacklisted = excluded.is_blacklisted,
  threat_score = excluded.threat_score,
  last_seen = excluded.last_seen,
  total_events = excluded.total_events,
  failed_login_count = excluded.failed_login_count,
  successful_login_count = excluded.successful_login_count,
  banned_count = excluded.banned_count,
  updated_at = excluded.updated_at
`,
		r.IP, r.Type, boolToInt(r.IsBlacklisted), r.ThreatScore,
		r.FirstSeen, r.LastSeen,
		r.TotalEvents, r.FailedLoginCount, r.SuccessfulLoginCount, r.BannedCount,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert reputation: %w", err)
	}
	return nil
}
