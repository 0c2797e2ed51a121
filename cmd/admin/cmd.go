package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/arzan03/coursehub/internal/services"
)

var (
	readPasswordFunc = term.ReadPassword

	errHelp = errors.New("help provided")
)

type commandLine struct {
	auth *services.AuthService
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createsuperadmin -email EMAIL -name NAME - create or promote a super admin")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL              - reset a user's password and sign them out")
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createCmd := flag.NewFlagSet("createsuperadmin", flag.ContinueOnError)
	createEmail := createCmd.String("email", "", "The super admin's email. The password will be prompted next.")
	createName := createCmd.String("name", "", "The super admin's display name.")

	resetCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetEmail := resetCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "createsuperadmin":
		if err := createCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createEmail == "" {
			createCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createCmd.Usage()
			return errHelp
		}
		return cli.createSuperAdmin(*createEmail, *createName, pwd)
	case "resetpassword":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetEmail == "" {
			resetCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createSuperAdmin(email, name, pwd string) error {
	if name == "" {
		name = "Super Admin"
	}
	u, created, err := cli.auth.EnsureSuperAdmin(context.Background(), email, name, pwd)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cli.out, "created super admin %s\n", u.Email)
	} else {
		fmt.Fprintf(cli.out, "promoted %s to super admin\n", u.Email)
	}
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	u, err := cli.auth.ResetPassword(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password reset for %s\n", u.Email)
	return nil
}

func newCommandLine(auth *services.AuthService) *commandLine {
	return &commandLine{auth: auth, out: os.Stdout}
}
