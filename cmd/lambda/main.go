// Command lambda runs one digest per invocation, e.g. from an EventBridge schedule.
//
// Configuration comes from the same environment variables as cmd/energynews.
// On Lambda only /tmp is writable, so use SENT_STORE=postgres or point
// CACHE_FILE_PATH / SQLITE_PATH there.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/deusflow/energynews/internal/app"
	"github.com/deusflow/energynews/internal/config"
	"github.com/deusflow/energynews/internal/logger"
)

// Response is returned to the invoker.
type Response struct {
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message"`
	RunID      string         `json:"runId,omitempty"`
	Fetched    int            `json:"fetched"`
	Accepted   int            `json:"accepted"`
	Delivered  int            `json:"delivered"`
	Rejected   map[string]int `json:"rejected,omitempty"`
	DryRun     bool           `json:"dryRun"`
}

var run = app.Run

// Handler loads the configuration and runs the bot once.
func Handler(ctx context.Context, _ interface{}) (Response, error) {
	cfg, err := config.Load()
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}

	report, err := run(ctx, cfg)
	if err != nil {
		resp := Response{StatusCode: 500, Message: err.Error()}
		if report != nil {
			resp.RunID = report.RunID
		}
		return resp, err
	}

	return Response{
		StatusCode: 200,
		Message:    "ok",
		RunID:      report.RunID,
		Fetched:    report.Fetched,
		Accepted:   report.Accepted,
		Delivered:  report.Delivered,
		Rejected:   report.Rejected,
		DryRun:     report.DryRun,
	}, nil
}

func main() {
	logger.Init()
	lambda.Start(Handler)
}
