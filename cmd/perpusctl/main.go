// Command perpusctl runs the borrowing lifecycle from a terminal, against the
// same library API the admin service uses.
//
//	API_URL=https://... API_TOKEN=... perpusctl borrow --member 3 --book 12
//	perpusctl return --loan 41
//	perpusctl fine --due 2024-03-08 --returned 2024-03-11
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"libraryadmin/internal/collab"
	"libraryadmin/internal/config"
	"libraryadmin/internal/models"
	"libraryadmin/internal/repositories"
	"libraryadmin/internal/services"
	"libraryadmin/internal/session"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "perpusctl",
		Short:         "Borrow and return library books from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(fineCmd(), borrowCmd(), returnCmd())
	return root
}

func fineCmd() *cobra.Command {
	var due, returned string
	cmd := &cobra.Command{
		Use:   "fine",
		Short: "Preview the late fine for a due date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := models.ParseDate(due)
			if err != nil {
				return fmt.Errorf("--due: %w", err)
			}
			var on *models.Date
			if returned != "" {
				rd, err := models.ParseDate(returned)
				if err != nil {
					return fmt.Errorf("--returned: %w", err)
				}
				on = &rd
			}
			loc, err := config.Location()
			if err != nil {
				return err
			}

			// Previewing needs no collaborator.
			svc := services.NewLibraryService(nil, nil, nil, nil, services.WithLocation(loc))
			p := svc.PreviewFine(d, on)
			if p.Amount == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Tepat waktu, tidak ada denda")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Terlambat %d hari, denda %s\n", p.DaysLate, p.Formatted)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&returned, "returned", "", "return date (YYYY-MM-DD), defaults to today in TIMEZONE")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func borrowCmd() *cobra.Command {
	var memberID, bookID int64
	var loanDate, dueDate string
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lend a book to a member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := services.CreateLoanRequest{MemberID: models.Int(memberID), BookID: models.Int(bookID)}
			if loanDate != "" {
				d, err := models.ParseDate(loanDate)
				if err != nil {
					return fmt.Errorf("--loan-date: %w", err)
				}
				req.LoanDate = &d
			}
			if dueDate != "" {
				d, err := models.ParseDate(dueDate)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				req.DueDate = &d
			}

			svc, sess, err := connect()
			if err != nil {
				return err
			}
			res, err := svc.CreateLoan(cmd.Context(), sess, req)
			return report(cmd, res, err)
		},
	}
	cmd.Flags().Int64Var(&memberID, "member", 0, "member id")
	cmd.Flags().Int64Var(&bookID, "book", 0, "book id")
	cmd.Flags().StringVar(&loanDate, "loan-date", "", "loan date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD), defaults to loan date + 7 days")
	return cmd
}

func returnCmd() *cobra.Command {
	var loanID int64
	cmd := &cobra.Command{
		Use:   "return",
		Short: "Return a borrowed book, issuing a fine when late",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, sess, err := connect()
			if err != nil {
				return err
			}
			res, err := svc.ReturnLoanByID(cmd.Context(), sess, loanID)
			return report(cmd, res, err)
		},
	}
	cmd.Flags().Int64Var(&loanID, "loan", 0, "loan id")
	_ = cmd.MarkFlagRequired("loan")
	return cmd
}

// connect builds the service from the environment. API_TOKEN is an upstream
// bearer token; the CLI never logs in on its own.
func connect() (services.LibraryService, *session.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	token := os.Getenv("API_TOKEN")
	if token == "" {
		return nil, nil, fmt.Errorf("API_TOKEN is required")
	}

	var sagaRepo repositories.SagaRepository
	if cfg.DatabaseURL != "" {
		db, err := repositories.Open(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[WARN] saga journal unavailable: %v", err)
		} else {
			sagaRepo = repositories.NewSagaRepository(db)
		}
	}

	client := collab.New(cfg.APIURL, cfg.APITimeout)
	svc := services.NewLibraryService(
		func(s *session.Session) services.Collaborator { return client.WithToken(s.Token) },
		sagaRepo, nil, nil,
		services.WithLocation(cfg.Location),
	)
	operator := os.Getenv("OPERATOR")
	if operator == "" {
		operator = "perpusctl"
	}
	return svc, session.FromToken(token, operator), nil
}

func report(cmd *cobra.Command, res *services.LoanResult, err error) error {
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), services.Localize(err))
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	if res.SagaID != uuid.Nil {
		fmt.Fprintf(cmd.OutOrStdout(), "saga %s\n", res.SagaID)
	}
	return nil
}

