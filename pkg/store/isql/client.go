package isql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/estate-tools/reportpipe/pkg/extract"
	"github.com/estate-tools/reportpipe/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const defaultTimeout = 5 * time.Minute

// Client drives the external command-line SQL client as a subprocess. Each
// call is a fresh process with its own pair of temporary files; no state is
// shared between calls.
type Client struct {
	cfg     domain.DatabaseConfig
	fs      afero.Fs
	workDir string
}

type Option func(*Client)

// WithFs swaps the filesystem used for temp files and existence checks.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

// WithWorkDir places the temporary query files in dir instead of the
// system temp directory.
func WithWorkDir(dir string) Option {
	return func(c *Client) { c.workDir = dir }
}

func NewClient(cfg domain.DatabaseConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{cfg: cfg, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one SQL statement through the client and extracts the result
// relations from its text output.
//
// The input file carries "<sql>;\nCOMMIT;\nEXIT;\n". On a non-zero exit the
// invocation is retried exactly once without the output-redirect flag, in
// which case captured stdout stands in for the output file. On timeout the
// subprocess is terminated and ErrTimeout returned. Both temporary files
// are removed on every exit path.
func (c *Client) Execute(ctx context.Context, sqlText string, params map[string]any) ([]domain.Relation, error) {
	logger := zerolog.Ctx(ctx)

	if ok, _ := afero.Exists(c.fs, c.cfg.ClientPath); !ok {
		return nil, fmt.Errorf("%w: client %q", ErrClientNotFound, c.cfg.ClientPath)
	}
	if ok, _ := afero.Exists(c.fs, c.cfg.DatabasePath); !ok {
		return nil, fmt.Errorf("%w: database %q", ErrClientNotFound, c.cfg.DatabasePath)
	}

	sqlText = renderSQL(sqlText, deriveParams(params, c.cfg))

	input, err := c.tempFile("query-*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to create input file: %w", err)
	}
	defer func() { _ = c.fs.Remove(input) }()

	output, err := c.tempFile("result-*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = c.fs.Remove(output) }()

	body := sqlText + ";\nCOMMIT;\nEXIT;\n"
	if err := afero.WriteFile(c.fs, input, []byte(body), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	conn := c.cfg.DatabasePath
	if c.cfg.UseLocalhost {
		conn = "localhost:" + conn
	}
	args := []string{conn, "-u", c.cfg.User, "-p", c.cfg.Password, "-i", input, "-o", output}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	logger.Debug().Str("client", c.cfg.ClientPath).Str("sql", truncate(sqlText, 120)).Msg("executing query")

	res, err := c.run(runCtx, args)
	if err != nil {
		return nil, err
	}

	text := ""
	if res.ExitCode != 0 {
		// Single bounded fallback: some client builds reject -o, so retry
		// once reading the table from stdout instead.
		logger.Warn().Int("exit_code", res.ExitCode).Msg("client failed, retrying without output redirect")
		res, err = c.run(runCtx, args[:len(args)-2])
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, &ExecError{ExitCode: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
		}
		text = res.Stdout
	} else {
		raw, err := afero.ReadFile(c.fs, output)
		if err != nil {
			return nil, fmt.Errorf("failed to read output file: %w", err)
		}
		text = string(raw)
	}

	rels := extract.Relations(text)
	logger.Debug().Int("result_sets", len(rels)).Msg("query executed")
	return rels, nil
}

func (c *Client) run(ctx context.Context, args []string) (execute.ExecResult, error) {
	task := execute.ExecTask{
		Command: c.cfg.ClientPath,
		Args:    args,
	}
	res, err := task.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return res, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
		}
		return res, fmt.Errorf("failed to run sql client: %w", err)
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
	}
	return res, nil
}

func (c *Client) tempFile(pattern string) (string, error) {
	f, err := afero.TempFile(c.fs, c.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// TestConnection runs a trivial catalog query to verify the client can open
// the database.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 'ok' FROM RDB$DATABASE", nil)
	return err
}

// Tables lists the user tables of the database.
func (c *Client) Tables(ctx context.Context) ([]string, error) {
	rels, err := c.Execute(ctx,
		"SELECT RDB$RELATION_NAME FROM RDB$RELATIONS WHERE RDB$SYSTEM_FLAG = 0 OR RDB$SYSTEM_FLAG IS NULL", nil)
	if err != nil {
		return nil, err
	}

	var tables []string
	for _, rel := range rels {
		if len(rel.Headers) == 0 {
			continue
		}
		col := rel.Headers[0]
		for _, row := range rel.Rows {
			if name, ok := row[col].(string); ok && name != "" {
				tables = append(tables, name)
			}
		}
	}
	return tables, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
