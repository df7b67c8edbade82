package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"classmix/config"
	"classmix/roster"
	"classmix/solver"
)

const maxUpload = 16 << 20

func (a *app) httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		http.Error(w, "cohort not found", http.StatusNotFound)
	case errors.Is(err, errDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case solver.IsInputError(err), errors.Is(err, roster.ErrBadHeader),
		errors.Is(err, roster.ErrBadRow), errors.Is(err, roster.ErrMissingSheet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		a.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (a *app) requireCohort(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	email, ok := a.requireAdmin(w, r)
	if !ok {
		return "", 0, false
	}
	cohortID, err := strconv.ParseInt(r.PathValue("cohortID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid cohort ID", http.StatusBadRequest)
		return "", 0, false
	}
	return email, cohortID, true
}

func (a *app) handleListCohorts(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	cohorts, err := listCohorts(a.db)
	if err != nil {
		a.httpError(w, err)
		return
	}
	writeJSON(w, cohorts)
}

func (a *app) handleCreateCohort(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	id, err := createCohort(a.db, body.Name)
	if err != nil {
		a.httpError(w, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "name": body.Name})
}

func (a *app) handleDeleteCohort(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	if err := deleteCohort(a.db, cohortID); err != nil {
		a.httpError(w, err)
		return
	}
	a.metrics.forget(cohortID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleImport(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	in, err := roster.ReadXLSX(file)
	if err != nil {
		a.httpError(w, err)
		return
	}
	if _, err := solver.ComputeTargets(in, a.params); err != nil {
		a.httpError(w, err)
		return
	}

	tx, err := a.db.Begin()
	if err != nil {
		a.httpError(w, err)
		return
	}
	defer tx.Rollback()
	if _, err := lockCohort(tx, cohortID); err != nil {
		a.httpError(w, err)
		return
	}
	if err := replaceRoster(tx, cohortID, in); err != nil {
		a.httpError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		a.httpError(w, err)
		return
	}
	a.log.Info("roster imported",
		zap.Int64("cohort", cohortID),
		zap.Int("students", len(in.Students)),
		zap.Int("classes", len(in.Classes)))
	writeJSON(w, map[string]any{
		"students": len(in.Students),
		"classes":  len(in.Classes),
		"mobility": solver.CountMobility(in.Students, poolsOf(in)),
	})
}

func poolsOf(in solver.Input) solver.OptionPool {
	if in.Pools != nil {
		return in.Pools
	}
	return solver.BuildOptionPool(in.Classes)
}

func (a *app) handleListStudents(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	if err := cohortExists(a.db, cohortID); err != nil {
		a.httpError(w, err)
		return
	}
	in, err := loadSnapshot(a.db, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}
	pools := poolsOf(in)
	for i := range in.Students {
		in.Students[i].Mobility = solver.Classify(in.Students[i], pools)
	}
	writeJSON(w, in.Students)
}

func (a *app) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil || compact.Len() == 0 || compact.Bytes()[0] != '{' {
		http.Error(w, "a JSON object is required", http.StatusBadRequest)
		return
	}

	tx, err := a.db.Begin()
	if err != nil {
		a.httpError(w, err)
		return
	}
	defer tx.Rollback()
	stored, err := lockCohort(tx, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}
	params, err := config.MergeJSON(a.params, stored)
	if err != nil {
		a.httpError(w, err)
		return
	}
	if params, err = config.MergeJSON(params, compact.Bytes()); err != nil {
		a.httpError(w, err)
		return
	}
	if err := updateParams(tx, cohortID, compact.Bytes()); err != nil {
		a.httpError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		a.httpError(w, err)
		return
	}
	writeJSON(w, params)
}

type solveResponse struct {
	RunID   int64                     `json:"run_id"`
	Moved   []string                  `json:"moved"`
	Targets solver.TargetDistribution `json:"targets"`
	Summary solver.Summary            `json:"summary"`
}

func (a *app) handleSolve(w http.ResponseWriter, r *http.Request) {
	email, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}

	tx, err := a.db.Begin()
	if err != nil {
		a.httpError(w, err)
		return
	}
	defer tx.Rollback()

	overrides, err := lockCohort(tx, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}
	params, err := config.MergeJSON(a.params, overrides)
	if err != nil {
		a.httpError(w, err)
		return
	}
	in, err := loadSnapshot(tx, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}

	engine, err := solver.New(params, solver.WithLogger(a.log.With(zap.Int64("cohort", cohortID))))
	if err != nil {
		a.httpError(w, err)
		return
	}
	start := time.Now()
	res, err := engine.Run(in)
	if err != nil {
		a.httpError(w, err)
		return
	}
	elapsed := time.Since(start)

	runID, err := saveRun(tx, cohortID, email, in.Students, res)
	if err != nil {
		a.httpError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		a.httpError(w, err)
		return
	}
	a.metrics.observe(cohortID, &res.Summary, elapsed)

	moved := movedStudents(in.Students, res.Assignment)
	if moved == nil {
		moved = []string{}
	}
	writeJSON(w, solveResponse{RunID: runID, Moved: moved, Targets: res.Targets, Summary: res.Summary})
}

func (a *app) handleListRuns(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	if err := cohortExists(a.db, cohortID); err != nil {
		a.httpError(w, err)
		return
	}
	runs, err := listRuns(a.db, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}
	writeJSON(w, runs)
}

func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	_, cohortID, ok := a.requireCohort(w, r)
	if !ok {
		return
	}
	if err := cohortExists(a.db, cohortID); err != nil {
		a.httpError(w, err)
		return
	}
	in, err := loadSnapshot(a.db, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}
	pools := poolsOf(in)
	for i := range in.Students {
		in.Students[i].Mobility = solver.Classify(in.Students[i], pools)
	}
	sum, err := lastSummary(a.db, cohortID)
	if err != nil {
		a.httpError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := roster.WriteXLSX(&buf, in.Students, sum); err != nil {
		a.httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cohort-%d.xlsx"`, cohortID))
	w.Write(buf.Bytes())
}
