package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tjdests/tjdests/internal/domain"
)

// DestinationRepository answers the student and college listings.
type DestinationRepository struct {
	db sqlx.ExtContext
}

func NewDestinationRepo(db sqlx.ExtContext) *DestinationRepository {
	return &DestinationRepository{db: db}
}

func (r *DestinationRepository) ListStudents(ctx context.Context, filter domain.StudentListFilter) ([]domain.User, int, error) {
	var (
		parts []string
		args  []any
		idx   = 1
	)

	if !filter.IncludeUnpublished {
		parts = append(parts, "u.publish_data = TRUE")
	}
	if filter.GraduationYear != 0 {
		parts = append(parts, fmt.Sprintf("u.graduation_year = $%d", idx))
		args = append(args, filter.GraduationYear)
		idx++
	}
	if filter.CollegeID != nil {
		parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM decision d WHERE d.user_id = u.id AND d.college_id = $%d)", idx))
		args = append(args, *filter.CollegeID)
		idx++
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		parts = append(parts, fmt.Sprintf(
			"(u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d OR u.nickname ILIKE $%[1]d OR u.biography ILIKE $%[1]d)", idx))
		args = append(args, likePattern(*filter.Search))
		idx++
	}

	where := ""
	if len(parts) > 0 {
		where = "WHERE " + strings.Join(parts, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM user_account u %s`, where)
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, mapError(err)
	}

	query := fmt.Sprintf(`
		SELECT `+prefixed("u", userColumns)+`
		FROM user_account u
		%s
		ORDER BY u.last_name, u.preferred_name, u.username
		LIMIT $%d OFFSET $%d
	`, where, idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	users := make([]domain.User, 0)
	if err := sqlx.SelectContext(ctx, r.db, &users, query, args...); err != nil {
		return nil, 0, mapError(err)
	}
	return users, total, nil
}

func (r *DestinationRepository) ListCollegeStats(ctx context.Context, filter domain.CollegeListFilter) ([]domain.CollegeStats, int, error) {
	var (
		joinParts = []string{"u.id = d.user_id", "u.publish_data = TRUE"}
		parts     []string
		args      []any
		idx       = 1
	)

	if filter.GraduationYear != 0 {
		joinParts = append(joinParts, fmt.Sprintf("u.graduation_year = $%d", idx))
		args = append(args, filter.GraduationYear)
		idx++
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		parts = append(parts, fmt.Sprintf("(c.name ILIKE $%[1]d OR c.location ILIKE $%[1]d)", idx))
		args = append(args, likePattern(*filter.Search))
		idx++
	}

	where := ""
	if len(parts) > 0 {
		where = "WHERE " + strings.Join(parts, " AND ")
	}
	from := fmt.Sprintf(`
		FROM college c
		JOIN decision d ON d.college_id = c.id
		JOIN user_account u ON %s
		%s`, strings.Join(joinParts, " AND "), where)

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(DISTINCT c.id) `+from, args...); err != nil {
		return nil, 0, mapError(err)
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.location,
		       COUNT(d.id) AS count_decisions,
		       COUNT(d.id) FILTER (WHERE u.attending_decision_id = d.id) AS count_attending,
		       %s
		%s
		GROUP BY c.id, c.name, c.location
		HAVING COUNT(d.id) >= 1
		ORDER BY c.name, c.location
		LIMIT $%d OFFSET $%d
	`, statusCounts(), from, idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	stats := make([]domain.CollegeStats, 0)
	if err := sqlx.SelectContext(ctx, r.db, &stats, query, args...); err != nil {
		return nil, 0, mapError(err)
	}
	return stats, total, nil
}

func (r *DestinationRepository) ListPublishedGraduationYears(ctx context.Context) ([]int, error) {
	const query = `
        SELECT DISTINCT graduation_year
        FROM user_account
        WHERE publish_data = TRUE AND graduation_year IS NOT NULL
        ORDER BY graduation_year DESC
    `
	years := make([]int, 0)
	if err := sqlx.SelectContext(ctx, r.db, &years, query); err != nil {
		return nil, mapError(err)
	}
	return years, nil
}

func statusCounts() string {
	columns := make([]string, 0, len(domain.AdmissionStatuses))
	for _, status := range domain.AdmissionStatuses {
		columns = append(columns, fmt.Sprintf("COUNT(d.id) FILTER (WHERE d.admission_status = '%s') AS count_%s",
			status, statusColumn(status)))
	}
	return strings.Join(columns, ",\n\t\t       ")
}

func statusColumn(status domain.AdmissionStatus) string {
	switch status {
	case domain.AdmissionDeferWLAdmit:
		return "defer_wl_admit"
	case domain.AdmissionDeferWLDeny:
		return "defer_wl_deny"
	}
	return strings.ToLower(string(status))
}

func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

func likePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(s)) + "%"
}
