package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/notify"
	"github.com/spf13/cobra"
)

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Manage Sehri and Iftar notifications",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Schedule notifications for the remaining month",
		Long: "Load the month's schedule and arm one Sehri and one Iftar notification per " +
			"remaining day, honoring the notification toggles. Re-running replaces the " +
			"previous schedule; runs within an hour of the last one are skipped unless --force.",
		RunE: runNotifySync,
	}
	syncCmd.Flags().Bool("force", false, "Reschedule even within the suppression window")
	cmd.AddCommand(syncCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Check that desktop notifications can be delivered",
		RunE:  runNotifySetup,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel all scheduled notifications",
		RunE:  runNotifyCancel,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Fire two test notifications",
		Long:  "Fire a test Sehri notification after 3 seconds and a test Iftar notification after 6 seconds.",
		RunE:  runNotifyTest,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show pending notification IDs",
		RunE:  runNotifyStatus,
	})

	return cmd
}

func runNotifySetup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.notifier.CheckPermission(context.Background())
	if errors.Is(err, notify.ErrPermissionDenied) {
		return fmt.Errorf("notifications unavailable: %w\nInstall notify-send (libnotify) and try again", err)
	}
	if err != nil {
		return err
	}

	fmt.Println("Notifications are ready. Run 'ramadan-times notify sync' to schedule the month.")
	return nil
}

func runNotifySync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	force, _ := cmd.Flags().GetBool("force")
	ctx := context.Background()

	if force {
		// Clearing the stamp defeats the suppression window.
		if err := a.store.SetLastScheduledAt(time.Time{}); err != nil {
			return err
		}
	}

	data, err := a.newLoader(true).Load(ctx, force)
	if err != nil {
		return err
	}

	// The loader already drove the scheduler; report what is armed.
	pending, err := a.notifier.Pending(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Scheduled %d notification(s) across %d day(s).\n", len(pending), data.TotalDays)
	if len(pending) > 0 {
		fmt.Println("Delivering in-process; press Ctrl-C to stop.")
		waitForDelivery(ctx, a.notifier)
	}
	return nil
}

func runNotifyCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.scheduler.CancelAll(context.Background()); err != nil {
		return err
	}
	fmt.Println("All notifications cancelled.")
	return nil
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.scheduler.TestFire(context.Background())
	if errors.Is(err, notify.ErrPermissionDenied) {
		return fmt.Errorf("notifications unavailable: %w", err)
	}
	if err != nil {
		return err
	}

	fmt.Println("Test notifications queued (3s and 6s)...")
	time.Sleep(7 * time.Second)
	return nil
}

func runNotifyStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.notifier.Pending(context.Background())
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		fmt.Println("No pending notifications.")
		return nil
	}
	fmt.Printf("%d pending notification(s): %v\n", len(pending), pending)

	if at, ok := a.store.LastScheduledAt(); ok {
		fmt.Printf("Last scheduled at %s\n", at.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// waitForDelivery blocks until every pending notification has fired or the
// process is interrupted.
func waitForDelivery(ctx context.Context, notifier notify.Notifier) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := notifier.Pending(ctx)
			if err != nil || len(pending) == 0 {
				return
			}
		}
	}
}
