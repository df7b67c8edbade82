package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"classmix/config"
	"classmix/roster"
	"classmix/solver"
)

type runResult struct {
	objective   float64
	fingerprint string
	termination solver.Termination
	pairs       int
	moves       int
	elapsed     time.Duration
}

func residualPairs(sum *solver.Summary) int {
	n := 0
	for _, c := range sum.Conflicts {
		n += c.Pairs
	}
	return n
}

func printStats(w io.Writer, label string, results []runResult) {
	runs := len(results)
	if runs == 0 {
		return
	}
	objectives := map[string]int{}
	assignments := map[string]int{}
	terminations := map[solver.Termination]int{}
	var totalTime time.Duration
	totalPairs, totalMoves := 0, 0

	for _, r := range results {
		totalTime += r.elapsed
		objectives[strconv.FormatFloat(r.objective, 'f', 3, 64)]++
		assignments[r.fingerprint]++
		terminations[r.termination]++
		totalPairs += r.pairs
		totalMoves += r.moves
	}

	fmt.Fprintf(w, "--- %s ---\n", label)
	fmt.Fprintf(w, "  avg time: %v\n", totalTime/time.Duration(runs))
	fmt.Fprintf(w, "  avg moves: %.1f\n", float64(totalMoves)/float64(runs))
	fmt.Fprintf(w, "  converged: %d/%d, capped: %d/%d\n", terminations[solver.Converged], runs, terminations[solver.Capped], runs)
	fmt.Fprintf(w, "  avg residual pairs: %.2f\n", float64(totalPairs)/float64(runs))

	type count struct {
		key string
		n   int
	}
	var objList []count
	for k, c := range objectives {
		objList = append(objList, count{k, c})
	}
	sort.Slice(objList, func(i, j int) bool {
		a, _ := strconv.ParseFloat(objList[i].key, 64)
		b, _ := strconv.ParseFloat(objList[j].key, 64)
		return a < b
	})
	fmt.Fprintf(w, "  objective distribution:\n")
	for _, o := range objList {
		fmt.Fprintf(w, "    objective %s: %d/%d runs (%.0f%%)\n", o.key, o.n, runs, float64(o.n)/float64(runs)*100)
	}

	var freqs []count
	for k, c := range assignments {
		freqs = append(freqs, count{k, c})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].n != freqs[j].n {
			return freqs[i].n > freqs[j].n
		}
		return freqs[i].key < freqs[j].key
	})
	fmt.Fprintf(w, "  unique assignments seen: %d\n", len(freqs))
	topN := min(5, len(freqs))
	fmt.Fprintf(w, "  top %d assignment frequencies: ", topN)
	for i := range topN {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%d/%d", freqs[i].n, runs)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			result = append(result, v)
		}
	}
	return result
}

func main() {
	input := pflag.StringP("input", "i", "", "roster workbook (.xlsx) or directory with students.json and structure.json")
	paramsFile := pflag.StringP("params", "p", "", "YAML parameter file, defaults when empty")
	runs := pflag.IntP("runs", "n", 20, "number of runs per parameter set")
	restarts := pflag.String("restarts", "", "comma-separated heuristic restart counts to sweep")
	exactLimits := pflag.String("exact-limit", "", "comma-separated exact group limits to sweep")
	out := pflag.StringP("out", "o", "", "write the best run to this workbook")
	verbose := pflag.BoolP("verbose", "v", false, "log every phase and move")
	pflag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		pflag.Usage()
		os.Exit(2)
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	base, err := config.LoadParamsFile(*paramsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading params: %v\n", err)
		os.Exit(1)
	}
	in, err := roster.Load(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading roster: %v\n", err)
		os.Exit(1)
	}

	before, err := solver.Objective(in, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid roster: %v\n", err)
		os.Exit(1)
	}
	pools := in.Pools
	if pools == nil {
		pools = solver.BuildOptionPool(in.Classes)
	}
	mobility := solver.CountMobility(in.Students, pools)
	fmt.Printf("Students: %d, Classes: %d, Objective: %.3f\n", len(in.Students), len(in.Classes), before)
	fmt.Printf("Mobility: free=%d conditional=%d group=%d fixed=%d\n",
		mobility[solver.SwappableFree], mobility[solver.SwappableConditional], mobility[solver.GroupLocked], mobility[solver.Fixed])
	fmt.Printf("Runs per config: %d\n\n", *runs)

	restartCounts := parseIntList(*restarts)
	if len(restartCounts) == 0 {
		restartCounts = []int{base.HeuristicRestarts}
	}
	limits := parseIntList(*exactLimits)
	if len(limits) == 0 {
		limits = []int{base.ExactGroupLimit}
	}

	var best *solver.Result
	for _, nr := range restartCounts {
		for _, limit := range limits {
			params := base
			params.HeuristicRestarts = nr
			params.ExactGroupLimit = limit
			var results []runResult
			for run := range *runs {
				params.Seed = int64(run * 31337)
				engine, err := solver.New(params, solver.WithLogger(log))
				if err != nil {
					fmt.Fprintf(os.Stderr, "params: %v\n", err)
					os.Exit(1)
				}
				start := time.Now()
				res, err := engine.Run(in)
				if err != nil {
					fmt.Fprintf(os.Stderr, "run: %v\n", err)
					os.Exit(1)
				}
				results = append(results, runResult{
					objective:   res.Summary.ObjectiveAfter,
					fingerprint: solver.Fingerprint(res.Assignment),
					termination: res.Summary.Termination,
					pairs:       residualPairs(&res.Summary),
					moves:       res.Summary.TotalMoves,
					elapsed:     time.Since(start),
				})
				if best == nil || better(res, best) {
					best = res
				}
			}
			printStats(os.Stdout, fmt.Sprintf("restarts=%d exact-limit=%d", nr, limit), results)
		}
	}

	if *out != "" && best != nil {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating %s: %v\n", *out, err)
			os.Exit(1)
		}
		if err := roster.WriteXLSX(f, best.Students, &best.Summary); err != nil {
			f.Close()
			fmt.Fprintf(os.Stderr, "writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("best run written to %s (objective %.3f)\n", *out, best.Summary.ObjectiveAfter)
	}
}

// better prefers fewer residual pairs, then the lower objective.
func better(a, b *solver.Result) bool {
	pa, pb := residualPairs(&a.Summary), residualPairs(&b.Summary)
	if pa != pb {
		return pa < pb
	}
	return a.Summary.ObjectiveAfter < b.Summary.ObjectiveAfter
}
