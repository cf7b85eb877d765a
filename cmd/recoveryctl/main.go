package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/recovery/internal/http/dto"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baseURL    string
		cookieName string
		sid        string
		outFormat  string
		timeout    time.Duration
		cl         *client
	)

	root := &cobra.Command{
		Use:           "recoveryctl",
		Short:         "CLI para la API de recuperación de cuentas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cl, err = newClient(baseURL, cookieName, timeout)
			if err != nil {
				return err
			}
			cl.OutFormat = outFormat
			return cl.useSession(sid)
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", envOr("RECOVERY_URL", "http://localhost:8080"), "Base URL del servidor")
	root.PersistentFlags().StringVar(&cookieName, "cookie", "sid", "Nombre de la cookie de sesión")
	root.PersistentFlags().StringVar(&sid, "sid", os.Getenv("RECOVERY_SID"), "Id de sesión a reusar")
	root.PersistentFlags().StringVarP(&outFormat, "output", "o", "text", "Formato de salida: text|json")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "Timeout HTTP")

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Consulta /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do(cmd.Context(), http.MethodGet, "/healthz", nil)
			if err != nil {
				return err
			}
			cl.print(cmd.OutOrStdout(), status, body)
			return check(status, body)
		},
	}

	// captcha verify
	var token string
	captchaVerifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verifica un token de captcha y muestra el id de sesión",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token es requerido")
			}
			status, body, err := cl.do(cmd.Context(), http.MethodPost, "/captcha/verify", dto.CaptchaVerifyRequest{Token: token})
			if err != nil {
				return err
			}
			cl.print(cmd.OutOrStdout(), status, body)
			if s := cl.session(); s != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", s)
			}
			return check(status, body)
		},
	}
	captchaVerifyCmd.Flags().StringVar(&token, "token", "", "Token devuelto por el widget")
	captchaCmd := &cobra.Command{Use: "captcha", Short: "Operaciones de captcha"}
	captchaCmd.AddCommand(captchaVerifyCmd)

	// reset request / confirm
	var (
		emailAddr    string
		captchaToken string
	)
	resetRequestCmd := &cobra.Command{
		Use:   "request",
		Short: "Pide un link de reset para un email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if emailAddr == "" {
				return fmt.Errorf("--email es requerido")
			}
			if captchaToken != "" {
				status, body, err := cl.do(cmd.Context(), http.MethodPost, "/captcha/verify", dto.CaptchaVerifyRequest{Token: captchaToken})
				if err != nil {
					return err
				}
				if err := check(status, body); err != nil {
					return err
				}
			}
			status, body, err := cl.do(cmd.Context(), http.MethodPost, "/password/reset", dto.ResetRequest{Email: emailAddr})
			if err != nil {
				return err
			}
			cl.print(cmd.OutOrStdout(), status, body)
			return check(status, body)
		},
	}
	resetRequestCmd.Flags().StringVar(&emailAddr, "email", "", "Email de la cuenta")
	resetRequestCmd.Flags().StringVar(&captchaToken, "captcha-token", "", "Verifica este token antes de pedir el reset")

	var (
		userID int64
		code   string
	)
	resetConfirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirma un reset con el id y el código del link",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 || code == "" {
				return fmt.Errorf("--id y --code son requeridos")
			}
			path := "/password/reset/" + strconv.FormatInt(userID, 10) + "/" + url.PathEscape(code)
			status, body, err := cl.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			cl.print(cmd.OutOrStdout(), status, body)
			return check(status, body)
		},
	}
	resetConfirmCmd.Flags().Int64Var(&userID, "id", 0, "Id del usuario")
	resetConfirmCmd.Flags().StringVar(&code, "code", "", "Código de reset")

	resetCmd := &cobra.Command{Use: "reset", Short: "Flujo de reset de contraseña"}
	resetCmd.AddCommand(resetRequestCmd, resetConfirmCmd)

	root.AddCommand(pingCmd, captchaCmd, resetCmd)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
