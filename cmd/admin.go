package cmd

import (
	"fmt"

	"TuneBox/core/auth"
	"TuneBox/db"
	"TuneBox/repository"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "管理员账号管理",
}

var promoteCmd = &cobra.Command{
	Use:     "promote <name>",
	Short:   "将用户提升为管理员",
	Args:    cobra.ExactArgs(1),
	Example: `  tunebox admin promote alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Migrate(gdb); err != nil {
			return err
		}

		svc := auth.NewService(
			repository.NewGormUserRepository(gdb),
			auth.NewHasher(cfg.PBKDF2Iterations),
			auth.NewTokenIssuer(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL),
			nil,
		)
		user, err := svc.PromoteToAdmin(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("用户 %s (%s) 已是管理员\n", user.Name, user.ID)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(adminCmd)
}
