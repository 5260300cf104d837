// Package evaluate forwards walk-forward iterations to an external evaluation engine.
package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/huangsam/defectset/internal/contract"
	"github.com/huangsam/defectset/schema"
)

// Environment variables describing the iteration to the evaluation command.
const (
	EnvProject         = "DEFECTSET_EVAL_PROJECT"
	EnvIteration       = "DEFECTSET_EVAL_ITERATION"
	EnvTrainingPath    = "DEFECTSET_EVAL_TRAINING_PATH"
	EnvTestingPath     = "DEFECTSET_EVAL_TESTING_PATH"
	EnvTrainingPercent = "DEFECTSET_EVAL_TRAINING_PERCENT"
)

// CommandEvaluator runs an external command once per iteration.
// The command receives the training and testing paths as its last two arguments
// and must print a JSON array of evaluation records on stdout.
type CommandEvaluator struct {
	name string
	args []string
}

var _ contract.Evaluator = &CommandEvaluator{} // Compile-time check

// NewCommandEvaluator parses a whitespace-separated command line.
func NewCommandEvaluator(command string) (*CommandEvaluator, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("evaluator command is empty")
	}
	return &CommandEvaluator{name: fields[0], args: fields[1:]}, nil
}

// Evaluate implements the Evaluator interface.
func (e *CommandEvaluator) Evaluate(ctx context.Context, req schema.EvaluationRequest) ([]schema.EvaluationRecord, error) {
	args := append(append([]string{}, e.args...), req.TrainingPath, req.TestingPath)
	cmd := exec.CommandContext(ctx, e.name, args...)
	cmd.Env = append(os.Environ(),
		EnvProject+"="+req.Project,
		EnvIteration+"="+strconv.Itoa(req.Iteration),
		EnvTrainingPath+"="+req.TrainingPath,
		EnvTestingPath+"="+req.TestingPath,
		EnvTrainingPercent+"="+strconv.FormatFloat(req.TrainingPercent, 'f', -1, 64),
	)

	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("evaluator failed on iteration %d: %s", req.Iteration, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("evaluator failed to start: %w. Check the evaluator-cmd setting", err)
	}
	return ParseRecords(out, req)
}

// ParseRecords decodes the evaluator output. Records missing project, iteration
// or training percent inherit them from req.
func ParseRecords(out []byte, req schema.EvaluationRequest) ([]schema.EvaluationRecord, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var records []schema.EvaluationRecord
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("failed to decode evaluator output for iteration %d: %w", req.Iteration, err)
	}
	for i := range records {
		r := &records[i]
		if r.Project == "" {
			r.Project = req.Project
		}
		if r.Iteration == 0 {
			r.Iteration = req.Iteration
		}
		if r.TrainingPercent == 0 {
			r.TrainingPercent = req.TrainingPercent
		}
	}
	return records, nil
}

// NoopEvaluator is used when no evaluation command is configured.
type NoopEvaluator struct{}

var _ contract.Evaluator = NoopEvaluator{} // Compile-time check

// Evaluate implements the Evaluator interface.
func (NoopEvaluator) Evaluate(context.Context, schema.EvaluationRequest) ([]schema.EvaluationRecord, error) {
	return nil, nil
}

// New returns a CommandEvaluator for command, or a NoopEvaluator when command is blank.
func New(command string) (contract.Evaluator, error) {
	if strings.TrimSpace(command) == "" {
		return NoopEvaluator{}, nil
	}
	return NewCommandEvaluator(command)
}
