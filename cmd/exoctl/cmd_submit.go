package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"exoplanet-ai/internal/api"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	submitServer   string
	submitLanguage string
	submitToken    string
	submitUserID   string
	submitTimeout  time.Duration

	submitCmd = &cobra.Command{
		Use:   "submit [observation.json]",
		Short: "Send an observation to a running exoserver and print the verdict",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSubmit,
	}
)

func init() {
	submitCmd.Flags().StringVar(&submitServer, "server", "http://localhost:8000", "exoserver base URL")
	submitCmd.Flags().StringVar(&submitLanguage, "language", "", "narrative language (server default when empty)")
	submitCmd.Flags().StringVar(&submitToken, "token", "", "session token of a logged-in account")
	submitCmd.Flags().StringVar(&submitUserID, "user-id", "", "anonymous user id from /api/user/id")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 10*time.Second, "request timeout")
}

type serverError struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	obs, err := readObservation(argOrEmpty(args), cmd.InOrStdin())
	if err != nil {
		return err
	}

	client := resty.New().SetTimeout(submitTimeout)
	req := client.R().
		SetContext(cmd.Context()).
		SetBody(obs).
		SetResult(&api.SearchResponse{}).
		SetError(&serverError{})
	if submitLanguage != "" {
		req.SetQueryParam("language", submitLanguage)
	}
	if submitUserID != "" {
		req.SetQueryParam("user_id", submitUserID)
	}
	if submitToken != "" {
		req.SetAuthToken(submitToken)
	}

	res, err := req.Post(strings.TrimRight(submitServer, "/") + "/search")
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if res.IsError() {
		e := res.Error().(*serverError)
		if len(e.Fields) > 0 {
			return fmt.Errorf("server rejected observation (%d): %s: %s", res.StatusCode(), e.Error, strings.Join(e.Fields, ", "))
		}
		return fmt.Errorf("server rejected observation (%d): %s", res.StatusCode(), e.Error)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Result())
}
