package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
)

// maxResponseBytes caps how much of the service reply is printed.
const maxResponseBytes = 1 << 20

type submitOptions struct {
	url            string
	objectID       string
	modelName      string
	callbackURL    string
	callbackMethod string
	params         map[string]string
	redshift       string
	timeout        time.Duration
}

func newSubmitCmd(state *cliState) *cobra.Command {
	opts := submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit <csv|->",
		Short: "Submit a photometry CSV for analysis",
		Example: `  nmma-admin submit --object-id ZTF21abcdefg --model Me2017 \
    --callback https://skyportal.example/api/webhooks/analysis/abc \
    --param nlive=512 --param tmax=14 photometry.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			csv, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			body, err := buildSubmission(opts, csv)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return postSubmission(ctx, state, opts.url, body)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "http://localhost:4003", "base URL of the analysis service")
	f.StringVar(&opts.objectID, "object-id", "", "object identifier passed to the fitter")
	f.StringVar(&opts.modelName, "model", "Me2017", "model to fit")
	f.StringVar(&opts.callbackURL, "callback", "", "URL the result is delivered to")
	f.StringVar(&opts.callbackMethod, "callback-method", http.MethodPost, "HTTP method used for delivery")
	f.StringToStringVar(&opts.params, "param", nil, "extra analysis parameter as key=value (repeatable)")
	f.StringVar(&opts.redshift, "redshift", "", "redshift passed as inputs.redshift")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("object-id")
	_ = cmd.MarkFlagRequired("callback")
	return cmd
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read photometry: %w", err)
	}
	return string(data), nil
}

func buildSubmission(opts submitOptions, csv string) ([]byte, error) {
	params := make(map[string]any, len(opts.params)+1)
	for k, v := range opts.params {
		params[k] = v
	}
	params[model.KeySource] = opts.modelName

	inputs := map[string]any{
		model.KeyPhotometry:         csv,
		model.KeyObjectID:           opts.objectID,
		model.KeyAnalysisParameters: params,
	}
	if opts.redshift != "" {
		if _, err := strconv.ParseFloat(opts.redshift, 64); err != nil {
			return nil, fmt.Errorf("invalid redshift %q", opts.redshift)
		}
		inputs[model.KeyRedshift] = model.KeyRedshift + "\n" + opts.redshift + "\n"
	}

	return json.Marshal(map[string]any{
		model.KeyCallbackURL:    opts.callbackURL,
		model.KeyCallbackMethod: strings.ToUpper(opts.callbackMethod),
		model.KeyInputs:         inputs,
	})
}

func postSubmission(ctx context.Context, state *cliState, baseURL string, body []byte) error {
	endpoint := strings.TrimRight(baseURL, "/") + "/analysis"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	state.logger.Debug("submission sent", "endpoint", endpoint, "status", resp.StatusCode)

	fmt.Fprintln(state.out, strings.TrimSpace(string(reply)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analysis service returned %s", resp.Status)
	}
	return nil
}
