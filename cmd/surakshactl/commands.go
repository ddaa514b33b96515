package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"surakshanet/internal/app"
	"surakshanet/internal/middleware"
	"surakshanet/internal/models"
)

func newFraudCmd(opts *options) *cobra.Command {
	var req models.FraudAnalysisRequest

	cmd := &cobra.Command{
		Use:   "fraud",
		Short: "Assess a single transaction (DhanRakshak)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				report, err := a.Service.AnalyzeFraud(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&req.SenderID, "sender", "", "sender UPI id or account")
	cmd.Flags().StringVar(&req.ReceiverID, "receiver", "", "receiver UPI id or account")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "amount in INR")
	cmd.Flags().StringVar(&req.Remarks, "remarks", "", "transaction remarks")
	return cmd
}

func newPhishingCmd(opts *options) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "phishing <content>",
		Short: "Check a URL, email or SMS for phishing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.PhishingAnalysisRequest{
				Content:     strings.Join(args, " "),
				ContentType: contentType,
			}
			return withApp(cmd, opts, func(a *app.App) error {
				report, err := a.Service.AnalyzePhishing(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", models.ContentText, "content type: url, email, sms or text")
	return cmd
}

// readUpload loads a local file; the MIME type is sniffed unless given
func readUpload(path, mimeType string) (models.MediaUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MediaUpload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return models.MediaUpload{FileName: filepath.Base(path), MIMEType: mimeType, Data: data}, nil
}

func newMediaCmd(opts *options) *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "media",
		Short: "Analyze an image, video or call recording",
	}
	cmd.PersistentFlags().StringVar(&mimeType, "mime", "", "declared MIME type (sniffed from the file when empty)")

	sub := func(use, short string, run func(a *app.App, cmd *cobra.Command, up models.MediaUpload) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <file>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				up, err := readUpload(args[0], mimeType)
				if err != nil {
					return err
				}
				return withApp(cmd, opts, func(a *app.App) error {
					result, err := run(a, cmd, up)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), result)
				})
			},
		}
	}

	cmd.AddCommand(
		sub("deepfake", "Check an image for manipulation (SatyaDarpan)", func(a *app.App, cmd *cobra.Command, up models.MediaUpload) (any, error) {
			return a.Service.AnalyzeDeepfake(cmd.Context(), up)
		}),
		sub("facial", "Simulated facial search against case records", func(a *app.App, cmd *cobra.Command, up models.MediaUpload) (any, error) {
			return a.Service.SearchFaces(cmd.Context(), up)
		}),
		sub("surveillance", "List notable events in CCTV footage", func(a *app.App, cmd *cobra.Command, up models.MediaUpload) (any, error) {
			return a.Service.AnalyzeSurveillance(cmd.Context(), up)
		}),
		sub("voice", "Check a call recording for scam behaviour", func(a *app.App, cmd *cobra.Command, up models.MediaUpload) (any, error) {
			return a.Service.AnalyzeVoiceScam(cmd.Context(), up)
		}),
	)
	return cmd
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to Sahayak CopBot; type /reset to start over, an empty line to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				session := a.Chats.Get("cli")
				if err := session.Init(); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for {
					fmt.Fprint(out, "> ")
					if !scanner.Scan() {
						return scanner.Err()
					}
					line := strings.TrimSpace(scanner.Text())
					switch line {
					case "":
						return nil
					case "/reset":
						session.Reset()
						fmt.Fprintln(out, "(conversation reset)")
						continue
					}

					reply, err := session.Send(cmd.Context(), line)
					if err != nil {
						fmt.Fprintln(out, "error:", err)
						continue
					}
					fmt.Fprintln(out, reply.Reply)
				}
			})
		},
	}
}

func newReportsCmd(opts *options) *cobra.Command {
	var (
		module string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List archived reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				if a.Archive == nil {
					return fmt.Errorf("report archive is disabled")
				}
				var (
					reports []*models.ReportRecord
					err     error
				)
				if module != "" {
					reports, err = a.Archive.ListReportsByModule(cmd.Context(), module, limit)
				} else {
					reports, err = a.Archive.ListReports(cmd.Context(), limit, 0)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reports)
			})
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "only this module")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum reports")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count archived reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				if a.Archive == nil {
					return fmt.Errorf("report archive is disabled")
				}
				stats, err := a.Archive.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	})
	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			token, expiresAt, err := middleware.IssueToken([]byte(cfg.Auth.JWTSecret), subject, role, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"token":      token,
				"expires_at": expiresAt.UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "officer", "token subject")
	cmd.Flags().StringVar(&role, "role", "police", "token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
