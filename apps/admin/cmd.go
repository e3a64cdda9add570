package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	memberSvc *member.Service
	redeemSvc *redeem.Service
	remote    collection.RemoteStore
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addmember -name NAME -username USERNAME [-email EMAIL] [-admin] - add or update a member")
	fmt.Println("  genkey -code CODE -grant GRANT [-max-uses N] [-expires RFC3339] - generate a redemption key")
	fmt.Println("  seed - push the built-in sample catalog to the remote store")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addMemberCmd := pflag.NewFlagSet("addmember", pflag.ExitOnError)
	addMemberName := addMemberCmd.String("name", "", "The member's full name.")
	addMemberUname := addMemberCmd.String("username", "", "The member's username. The password will be prompted next.")
	addMemberEmail := addMemberCmd.String("email", "", "The member's email address.")
	addMemberAdmin := addMemberCmd.Bool("admin", false, "Grant all admin roles.")

	genKeyCmd := pflag.NewFlagSet("genkey", pflag.ExitOnError)
	genKeyCode := genKeyCmd.String("code", "", "The redemption code handed out to members.")
	genKeyGrant := genKeyCmd.String("grant", "", "What redeeming the code grants, eg. premium_month.")
	genKeyMaxUses := genKeyCmd.Int("max-uses", 1, "How many distinct members may redeem the code.")
	genKeyExpires := genKeyCmd.String("expires", "", "Expiry timestamp (RFC3339); empty means never.")

	switch args[1] {
	case "addmember":
		if err := addMemberCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addMemberName == "" || *addMemberUname == "" {
			addMemberCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addMemberCmd.Usage()
			return errHelp
		}
		return cli.addMember(*addMemberName, *addMemberUname, *addMemberEmail, string(pwd), *addMemberAdmin)
	case "genkey":
		if err := genKeyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *genKeyCode == "" || *genKeyGrant == "" {
			genKeyCmd.Usage()
			return errHelp
		}
		return cli.genKey(*genKeyCode, *genKeyGrant, *genKeyMaxUses, *genKeyExpires)
	case "seed":
		return cli.seed()
	default:
		cli.printUsage()
		return errHelp
	}
}
