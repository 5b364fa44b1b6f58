// internal/desk/desk.go

// Package desk is the terminal front end of the circulation desk. A user
// enters their name, gets the desk for their role and works it until they
// quit back to the startup prompt.
package desk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"hinlibs/internal/catalog"
	"hinlibs/internal/circulation"
	"hinlibs/internal/membership"
)

const startupPrompt = "Enter your name (e.g., Alice, Bob, Carmen, Dev, Eve, Librarian, Admin): "

type Desk struct {
	store    circulation.Service
	sessions membership.Service
	sc       *bufio.Scanner
	out      io.Writer
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Desk)

// WithClock sets the time used for days-remaining figures.
func WithClock(now func() time.Time) Option {
	return func(d *Desk) { d.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Desk) { d.log = log }
}

func New(store circulation.Service, sessions membership.Service, in io.Reader, out io.Writer, opts ...Option) *Desk {
	d := &Desk{
		store:    store,
		sessions: sessions,
		sc:       bufio.NewScanner(in),
		out:      out,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run loops on the startup prompt until input ends, ctx is cancelled or the
// user types "exit".
func (d *Desk) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.printf("\n%s", startupPrompt)
		line, ok := d.readLine()
		if !ok {
			return d.sc.Err()
		}
		if line == "exit" {
			d.println("Goodbye!")
			return nil
		}

		session, err := d.sessions.Enter(ctx, line)
		switch {
		case errors.Is(err, membership.ErrMissingName):
			d.println("Please enter a name.")
			continue
		case errors.Is(err, membership.ErrUserNotFound):
			d.printf("No user named %q. Try one of the names above.\n", strings.TrimSpace(line))
			continue
		case err != nil:
			d.printf("Could not open a session: %v\n", err)
			continue
		}

		more := true
		if session.Role == membership.RolePatron {
			more = d.patronDesk(ctx, session)
		} else {
			d.printf("HinLIBS %s: %s\n", session.Role, session.Name)
			d.printf("%s interface is not available yet. Returning to startup.\n", session.Role)
		}

		if err := d.sessions.Leave(ctx, session.ID); err != nil {
			d.log.Warn("failed to close desk session", zap.Error(err))
		}
		if !more {
			return d.sc.Err()
		}
	}
}

// patronDesk serves one patron session. It returns false when input ended.
func (d *Desk) patronDesk(ctx context.Context, session *membership.Session) bool {
	name := session.Name
	d.printf("HinLIBS Patron: %s\n", name)
	d.printHelp()

	for {
		d.printf("\n%s> ", name)
		line, ok := d.readLine()
		if !ok {
			return false
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd := strings.ToLower(fields[0])
		switch cmd {
		case "quit", "logout":
			d.println("Session closed.")
			return true
		case "help":
			d.printHelp()
		case "list":
			d.listItems(ctx)
		case "loans":
			d.listLoans(ctx, name)
		case "holds":
			d.listHolds(ctx, name)
		case "borrow", "return", "hold", "cancel":
			if len(fields) != 2 {
				d.printf("Usage: %s <item id>\n", cmd)
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				d.printf("Invalid item ID: %s\n", fields[1])
				continue
			}
			d.circulate(ctx, cmd, name, id)
		default:
			d.println("Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func (d *Desk) circulate(ctx context.Context, cmd, name string, id int) {
	switch cmd {
	case "borrow":
		checkout, err := d.store.BorrowItem(ctx, name, id)
		if err != nil {
			d.printf("Borrow failed: %v\n", err)
			return
		}
		d.printf("Item checked out! Due %s (in %d days).\n", checkout.DueDate.Format(catalog.DateLayout), circulation.LoanDays)
	case "return":
		if err := d.store.ReturnItem(ctx, name, id); err != nil {
			d.printf("Return failed: %v\n", err)
			return
		}
		d.println("Item returned successfully.")
	case "hold":
		pos, err := d.store.PlaceHold(ctx, name, id)
		if err != nil {
			d.printf("Hold failed: %v\n", err)
			return
		}
		d.printf("Hold placed successfully. You are #%d in queue.\n", pos)
	case "cancel":
		if err := d.store.CancelHold(ctx, name, id); err != nil {
			d.printf("Cancel hold failed: %v\n", err)
			return
		}
		d.println("You have successfully canceled your hold on this item.")
	}
}

func (d *Desk) listItems(ctx context.Context) {
	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTitle\tAuthor/Creator\tFormat\tAvailability")
	for _, it := range d.store.Items(ctx) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Creator, it.Format(), it.AvailabilityText())
	}
	tw.Flush()
}

func (d *Desk) listLoans(ctx context.Context, name string) {
	user, err := d.store.LookupUser(ctx, name)
	if err != nil {
		d.printf("Error: %v\n", err)
		return
	}

	d.printf("My Active Loans (max %d):\n", circulation.MaxActiveLoans)
	if len(user.ActiveLoans) == 0 {
		d.println("  (none)")
		return
	}
	for _, id := range user.ActiveLoans {
		it, err := d.store.Item(ctx, id)
		if err != nil {
			d.printf("  #%d  (unknown item)\n", id)
			continue
		}
		due, left := "-", "-"
		if it.Status.DueDate != nil {
			due = it.Status.DueDate.Format(catalog.DateLayout)
		}
		if days, ok := it.DaysRemaining(d.now()); ok {
			left = strconv.Itoa(days)
		}
		d.printf("  #%d  %s  (due %s, %s days left)\n", it.ID, it.Title, due, left)
	}
}

func (d *Desk) listHolds(ctx context.Context, name string) {
	user, err := d.store.LookupUser(ctx, name)
	if err != nil {
		d.printf("Error: %v\n", err)
		return
	}

	d.println("My Active Holds:")
	if len(user.Holds) == 0 {
		d.println("  (none)")
		return
	}
	for _, id := range user.Holds {
		it, err := d.store.Item(ctx, id)
		if err != nil {
			d.printf("  #%d  (unknown item)\n", id)
			continue
		}
		d.printf("  #%d  %s  (position %d)\n", it.ID, it.Title, d.store.HoldPosition(ctx, name, id))
	}
}

func (d *Desk) printHelp() {
	d.println("Commands:")
	d.println("  list            show the catalogue")
	d.println("  loans           show your active loans")
	d.println("  holds           show your holds and queue positions")
	d.println("  borrow <id>     check out an available item")
	d.println("  return <id>     return an item you borrowed")
	d.println("  hold <id>       join an item's hold queue")
	d.println("  cancel <id>     leave an item's hold queue")
	d.println("  quit            end your session")
}

func (d *Desk) readLine() (string, bool) {
	if !d.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(d.sc.Text()), true
}

func (d *Desk) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *Desk) println(s string) {
	fmt.Fprintln(d.out, s)
}
