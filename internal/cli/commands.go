package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/secira/TargetCapital-sub000/internal/app"
	pccfg "github.com/secira/TargetCapital-sub000/internal/config"
	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/pipeline"
	"github.com/secira/TargetCapital-sub000/internal/signal"
)

const version = "1.0.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "precheck",
		Short: "TargetCapital pre-trade validation and execution planning",
		Long: `precheck runs trade signals through the six-stage pre-trade pipeline
(subscription, broker, funds, signal, risk, plan) and prints the resulting
execution plan or the validation failures as JSON.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newPoliciesCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("config", "", "Configuration file path (default PRECHECK_CONFIG or configs/config.yaml)")

	return rootCmd
}

// newValidateCmd creates the validate command.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [SIGNAL_FILE]",
		Short: "Run one trade signal through the pipeline",
		Long: `Validate a single signal request and print the result as JSON.
The file holds either a full request {"user_id":"u1","signal":{...}} or a bare
signal object; pass "-" to read from stdin. --user overrides a missing user_id.
Example: precheck validate signal.json --user u-1001 --pretty`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0])
			if err != nil {
				return err
			}
			req, err := signal.ParseRequest(string(raw))
			if err != nil {
				return err
			}
			if override, _ := cmd.Flags().GetString("user"); strings.TrimSpace(override) != "" {
				req.UserID = strings.TrimSpace(override)
			}
			if strings.TrimSpace(req.UserID) == "" {
				return fmt.Errorf("user id is required: set user_id in the request or pass --user")
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			res := sess.app.Pipeline().Run(cmd.Context(), req.UserID, req.Signal)
			pretty, _ := cmd.Flags().GetBool("pretty")
			if err := printJSON(res, pretty); err != nil {
				return err
			}
			if !res.Success {
				if failure := res.Failure(); failure != nil {
					return fmt.Errorf("signal rejected at %s stage", failure.Stage)
				}
				return fmt.Errorf("signal rejected")
			}
			return nil
		},
	}

	cmd.Flags().String("user", "", "User ID when the request omits user_id")
	cmd.Flags().Bool("pretty", false, "Indent the JSON output")

	return cmd
}

// newBatchCmd creates the batch command.
func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [SIGNALS_FILE]",
		Short: "Run a batch of trade signals through the pipeline",
		Long: `Validate many signal requests and print a summary plus per-signal results.
The file holds a request array, a {"signals":[...]} wrapper or a single object;
pass "-" to read from stdin. Signals are validated concurrently, each with its
own isolated pipeline state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0])
			if err != nil {
				return err
			}
			reqs, err := signal.ParseRequests(string(raw))
			if err != nil {
				return err
			}
			fallbackUser, _ := cmd.Flags().GetString("user")
			fallbackUser = strings.TrimSpace(fallbackUser)
			for i := range reqs {
				if strings.TrimSpace(reqs[i].UserID) == "" {
					reqs[i].UserID = fallbackUser
				}
				if strings.TrimSpace(reqs[i].UserID) == "" {
					return fmt.Errorf("信号#%d 缺少 user_id（可用 --user 统一指定）", i+1)
				}
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			concurrency, _ := cmd.Flags().GetInt("concurrency")
			if concurrency < 1 {
				concurrency = 1
			}
			pipe := sess.app.Pipeline()
			results := make([]*pipeline.Result, len(reqs))

			group, runCtx := errgroup.WithContext(cmd.Context())
			group.SetLimit(concurrency)
			for i, req := range reqs {
				i, req := i, req
				group.Go(func() error {
					results[i] = pipe.Run(runCtx, req.UserID, req.Signal)
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			out := batchOutput{Total: len(results), Results: results}
			for _, res := range results {
				if res != nil && res.Success {
					out.Passed++
				}
			}
			out.Rejected = out.Total - out.Passed
			logger.Infof("[batch] 共 %d 条信号，通过 %d，拦截 %d", out.Total, out.Passed, out.Rejected)

			pretty, _ := cmd.Flags().GetBool("pretty")
			return printJSON(out, pretty)
		},
	}

	cmd.Flags().String("user", "", "Fallback user ID for requests that omit user_id")
	cmd.Flags().Int("concurrency", 4, "Signals validated in parallel")
	cmd.Flags().Bool("pretty", false, "Indent the JSON output")

	return cmd
}

// newPoliciesCmd creates the policies command.
func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Show the active risk policies and pipeline configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if sess.app.Summary == nil {
				return fmt.Errorf("startup summary unavailable")
			}
			sess.app.Summary.Print()
			return nil
		},
	}
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("precheck v%s\n", version)
			fmt.Println("TargetCapital pre-trade validation pipeline")
		},
	}
}

type batchOutput struct {
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Rejected int                `json:"rejected"`
	Results  []*pipeline.Result `json:"results"`
}

// session 持有一次命令执行所需的应用对象与日志文件句柄。
type session struct {
	app     *app.App
	logFile *os.File
}

func (s *session) Close() {
	if s == nil {
		return
	}
	if s.app != nil {
		if err := s.app.Close(); err != nil {
			logger.Warnf("关闭应用失败: %v", err)
		}
	}
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

// openSession 读取配置并构建 App。结果 JSON 走 stdout，日志走 stderr
// （配置了 log_path 时同时落盘）。
func openSession(cmd *cobra.Command) (*session, error) {
	path := resolveConfigPath(cmd)
	cfg, err := pccfg.Load(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，config=%s）", cfg.App.Env, path)

	application, err := app.NewApp(cfg)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("初始化应用失败: %w", err)
	}
	return &session{app: application, logFile: logFile}, nil
}

func resolveConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); strings.TrimSpace(path) != "" {
		return strings.TrimSpace(path)
	}
	if env := strings.TrimSpace(os.Getenv("PRECHECK_CONFIG")); env != "" {
		return env
	}
	return "configs/config.yaml"
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetOutput(os.Stderr)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func printJSON(v any, pretty bool) error {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
