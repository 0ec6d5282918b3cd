package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

type addUserOptions struct {
	username string
	password string
	role     string
	dbPath   string
}

func newAddUserCmd() *cobra.Command {
	var opts addUserOptions

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user in the SQLite store",
		Long: `Create a user in the SQLite store. The password is prompted for when
--password is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dbPath == "" {
				opts.dbPath = config.Load().SQLiteDBPath
			}
			return addUser(cmd, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.username, "user", "", "Username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (optional, will prompt if omitted)")
	cmd.Flags().StringVar(&opts.role, "role", string(core.RoleStandard), "Role: user or admin")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func addUser(cmd *cobra.Command, opts addUserOptions, stdin io.Reader, stdout io.Writer) error {
	password := opts.password
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	logger := log.Discard()
	repo, err := cli.InitSQLite(logger, opts.dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	u, err := services.NewUserService(repo, logger).CreateUser(cmd.Context(), opts.username, password, core.Role(opts.role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created with ID %d and role %s\n", u.Username, u.ID, u.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
