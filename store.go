package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"

	"classmix/solver"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("already exists")
)

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func dbError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", errDuplicate, pqErr.Detail)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound
	}
	return err
}

type cohort struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Params    json.RawMessage `json:"params"`
	Students  int             `json:"students"`
	Classes   int             `json:"classes"`
	CreatedAt time.Time       `json:"created_at"`
}

func listCohorts(q querier) ([]cohort, error) {
	rows, err := q.Query(`
		SELECT c.id, c.name, c.params, c.created_at,
			(SELECT count(*) FROM students s WHERE s.cohort_id = c.id),
			(SELECT count(*) FROM classes k WHERE k.cohort_id = c.id)
		FROM cohorts c
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cohorts := []cohort{}
	for rows.Next() {
		var c cohort
		var params []byte
		if err := rows.Scan(&c.ID, &c.Name, &params, &c.CreatedAt, &c.Students, &c.Classes); err != nil {
			return nil, err
		}
		c.Params = params
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

func createCohort(q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow("INSERT INTO cohorts (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, dbError(err)
}

func deleteCohort(q querier, id int64) error {
	result, err := q.Exec("DELETE FROM cohorts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errNotFound
	}
	return nil
}

func updateParams(q querier, id int64, params []byte) error {
	result, err := q.Exec("UPDATE cohorts SET params = params || $2::jsonb WHERE id = $1", id, string(params))
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errNotFound
	}
	return nil
}

// lockCohort returns the stored overrides under a row lock.
func lockCohort(q querier, id int64) ([]byte, error) {
	var params []byte
	err := q.QueryRow("SELECT params FROM cohorts WHERE id = $1 FOR UPDATE", id).Scan(&params)
	return params, dbError(err)
}

func scoreArray(s solver.Scores) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[i] = int64(v)
	}
	return out
}

func scoresFrom(a []int64) solver.Scores {
	var s solver.Scores
	for i := range min(len(a), len(s)) {
		s[i] = int(a[i])
	}
	return s
}

func replaceRoster(tx *sql.Tx, cohortID int64, in solver.Input) error {
	for _, table := range []string{"students", "option_pools", "classes"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE cohort_id = $1", cohortID); err != nil {
			return err
		}
	}
	for _, c := range in.Classes {
		quotas, err := json.Marshal(c.Quotas)
		if err != nil {
			return err
		}
		if c.Quotas == nil {
			quotas = []byte("{}")
		}
		_, err = tx.Exec(`
			INSERT INTO classes (cohort_id, name, min_size, max_size, ideal_size, quotas)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			cohortID, string(c.Name), c.Min, c.Max, c.Ideal, string(quotas))
		if err != nil {
			return dbError(err)
		}
	}
	for key, classes := range in.Pools {
		names := make([]string, len(classes))
		for i, c := range classes {
			names[i] = string(c)
		}
		_, err := tx.Exec("INSERT INTO option_pools (cohort_id, option_key, classes) VALUES ($1, $2, $3)",
			cohortID, string(key), pq.Array(names))
		if err != nil {
			return dbError(err)
		}
	}
	stmt, err := tx.Prepare(`
		INSERT INTO students (cohort_id, external_id, class_name, scores, sex, language_key, option_key, association, dissociation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range in.Students {
		_, err := stmt.Exec(cohortID, string(s.ID), string(s.Class), pq.Array(scoreArray(s.Scores)),
			s.Sex.String(), string(s.Language), string(s.Option), string(s.Association), string(s.Dissociation))
		if err != nil {
			return dbError(err)
		}
	}
	return nil
}

func loadStudents(q querier, cohortID int64) ([]solver.Student, error) {
	rows, err := q.Query(`
		SELECT external_id, class_name, scores, sex, language_key, option_key, association, dissociation
		FROM students WHERE cohort_id = $1 ORDER BY external_id`, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	students := []solver.Student{}
	for rows.Next() {
		var s solver.Student
		var scores []int64
		var sex string
		if err := rows.Scan((*string)(&s.ID), (*string)(&s.Class), pq.Array(&scores), &sex,
			(*string)(&s.Language), (*string)(&s.Option), (*string)(&s.Association), (*string)(&s.Dissociation)); err != nil {
			return nil, err
		}
		s.Scores = scoresFrom(scores)
		s.Sex = solver.ParseSex(sex)
		students = append(students, s)
	}
	return students, rows.Err()
}

// loadSnapshot leaves the dissociation seed empty: every holder is a stored student.
func loadSnapshot(q querier, cohortID int64) (solver.Input, error) {
	var in solver.Input
	rows, err := q.Query(`
		SELECT name, min_size, max_size, ideal_size, quotas
		FROM classes WHERE cohort_id = $1 ORDER BY name`, cohortID)
	if err != nil {
		return in, err
	}
	defer rows.Close()
	for rows.Next() {
		var c solver.ClassGroup
		var quotas []byte
		if err := rows.Scan((*string)(&c.Name), &c.Min, &c.Max, &c.Ideal, &quotas); err != nil {
			return in, err
		}
		if err := json.Unmarshal(quotas, &c.Quotas); err != nil {
			return in, err
		}
		if len(c.Quotas) == 0 {
			c.Quotas = nil
		}
		in.Classes = append(in.Classes, c)
	}
	if err := rows.Err(); err != nil {
		return in, err
	}

	prows, err := q.Query("SELECT option_key, classes FROM option_pools WHERE cohort_id = $1", cohortID)
	if err != nil {
		return in, err
	}
	defer prows.Close()
	for prows.Next() {
		var key string
		var classes []string
		if err := prows.Scan(&key, pq.Array(&classes)); err != nil {
			return in, err
		}
		if in.Pools == nil {
			in.Pools = solver.OptionPool{}
		}
		for _, c := range classes {
			in.Pools[solver.OptionKey(key)] = append(in.Pools[solver.OptionKey(key)], solver.ClassID(c))
		}
	}
	if err := prows.Err(); err != nil {
		return in, err
	}

	in.Students, err = loadStudents(q, cohortID)
	return in, err
}

func movedStudents(before []solver.Student, after map[solver.StudentID]solver.ClassID) []string {
	var moved []string
	for _, s := range before {
		if c, ok := after[s.ID]; ok && c != s.Class {
			moved = append(moved, string(s.ID))
		}
	}
	slices.Sort(moved)
	return moved
}

func saveRun(tx *sql.Tx, cohortID int64, email string, before []solver.Student, res *solver.Result) (int64, error) {
	moved := movedStudents(before, res.Assignment)
	stmt, err := tx.Prepare("UPDATE students SET class_name = $3 WHERE cohort_id = $1 AND external_id = $2")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, id := range moved {
		if _, err := stmt.Exec(cohortID, id, string(res.Assignment[solver.StudentID(id)])); err != nil {
			return 0, err
		}
	}

	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return 0, err
	}
	if moved == nil {
		moved = []string{}
	}
	var id int64
	err = tx.QueryRow(`
		INSERT INTO runs (cohort_id, created_by, termination, total_moves, objective_before, objective_after, moved, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		cohortID, email, res.Summary.Termination.String(), res.Summary.TotalMoves,
		res.Summary.ObjectiveBefore, res.Summary.ObjectiveAfter, pq.Array(moved), string(summary)).Scan(&id)
	return id, err
}

type run struct {
	ID        int64           `json:"id"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	Moved     []string        `json:"moved"`
	Summary   json.RawMessage `json:"summary"`
}

func listRuns(q querier, cohortID int64) ([]run, error) {
	rows, err := q.Query(`
		SELECT id, created_by, created_at, moved, summary
		FROM runs WHERE cohort_id = $1 ORDER BY id DESC`, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := []run{}
	for rows.Next() {
		var r run
		var summary []byte
		if err := rows.Scan(&r.ID, &r.CreatedBy, &r.CreatedAt, pq.Array(&r.Moved), &summary); err != nil {
			return nil, err
		}
		r.Summary = summary
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func lastSummary(q querier, cohortID int64) (*solver.Summary, error) {
	var raw []byte
	err := q.QueryRow("SELECT summary FROM runs WHERE cohort_id = $1 ORDER BY id DESC LIMIT 1", cohortID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sum solver.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func cohortExists(q querier, id int64) error {
	var one int
	return dbError(q.QueryRow("SELECT 1 FROM cohorts WHERE id = $1", id).Scan(&one))
}
