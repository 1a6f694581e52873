package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fivetwenty-io/osclient/internal/auth"
	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/pkg/openstack"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [CLOUD]",
		Short: "Store a token for a cloud",
		Long: `Validate an existing Keystone token against the cloud's identity service and
store it in the configuration. The token is read from --token, OSC_TOKEN or
prompted for.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				viper.Set("cloud", args[0])
			}

			name, cloud, err := selectedCloud()
			if err != nil {
				return err
			}

			if cloud.IdentityEndpoint == "" {
				return fmt.Errorf("cloud %s: %w", name, ErrIdentityEndpointRequired)
			}

			token := viper.GetString("token")
			if token == "" {
				token, err = promptToken(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			if token == "" {
				return constants.ErrEmptyToken
			}

			ctx := context.Background()

			catalog, err := openstack.FetchCatalog(ctx, &osapi.Config{
				IdentityEndpoint: cloud.IdentityEndpoint,
				AuthToken:        token,
				SkipTLSVerify:    cloud.SkipSSLValidation || viper.GetBool("skip_ssl_validation"),
				Logger:           newLogger(),
			}, nil)
			if err != nil {
				return fmt.Errorf("failed to log in to %s: %w", name, err)
			}

			tokenManager := auth.NewConfigTokenManager(auth.NewStaticTokenManager(token, time.Time{}), NewConfigPersister(), name)

			err = tokenManager.Persist(ctx)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s (%d services in catalog)\n", name, len(catalog.Services))

			return nil
		},
	}
}

// promptToken reads a token without echo when stdin is a terminal.
func promptToken(in io.Reader, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "Token: ")

	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(out)

		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	return strings.TrimSpace(line), nil
}
