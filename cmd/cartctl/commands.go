package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-cart/internal/cart"
)

// session is an opened cart plus whatever must be released after it.
type session struct {
	store   *cart.Store
	release func() error
}

type opener func(ctx context.Context) (*session, error)

const closeTimeout = 10 * time.Second

type cartView struct {
	Products []cart.LineItem `json:"products"`
	Version  uint64          `json:"version"`
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit the persisted marketplace cart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newListCmd(open),
		newAddCmd(open),
		newQuantityCmd(open, "inc", "Increment the quantity of a product", cart.Cart.Increment),
		newQuantityCmd(open, "dec", "Decrement the quantity of a product, removing it at zero", cart.Cart.Decrement),
		newWatchCmd(open),
	)
	return root
}

func newListCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, func(s *cart.Store) error {
				return printSnapshot(cmd.OutOrStdout(), s.Products())
			})
		},
	}
}

func newAddCmd(open opener) *cobra.Command {
	var p cart.Product
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product, or bump its quantity when already in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Price < 0 {
				return fmt.Errorf("--price must be >= 0")
			}
			return withSession(cmd.Context(), open, func(s *cart.Store) error {
				w, err := s.AddToCart(cmd.Context(), p)
				if err != nil {
					return err
				}
				return finish(cmd, s, w)
			})
		},
	}
	cmd.Flags().StringVar(&p.ID, "id", "", "product id")
	cmd.Flags().StringVar(&p.Title, "title", "", "product title")
	cmd.Flags().StringVar(&p.ImageURL, "image-url", "", "product image url")
	cmd.Flags().Float64Var(&p.Price, "price", 0, "unit price")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

type quantityOp func(c cart.Cart, ctx context.Context, id string) (*cart.Write, error)

func newQuantityCmd(open opener, use, short string, apply quantityOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, func(s *cart.Store) error {
				w, err := apply(s, cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if w == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s is not in the cart\n", args[0])
				}
				return finish(cmd, s, w)
			})
		},
	}
}

func newWatchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every new cart version until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), open, func(s *cart.Store) error {
				snaps, cancel := s.Subscribe()
				defer cancel()
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					case snap, ok := <-snaps:
						if !ok {
							return nil
						}
						if err := printSnapshot(cmd.OutOrStdout(), snap); err != nil {
							return err
						}
					}
				}
			})
		},
	}
}

func withSession(ctx context.Context, open opener, fn func(s *cart.Store) error) (err error) {
	sess, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		err = multierr.Combine(err, sess.store.Close(closeCtx), sess.release())
	}()

	select {
	case <-sess.store.Ready():
	case <-ctx.Done():
		return fmt.Errorf("waiting for cart load: %w", ctx.Err())
	}
	if loadErr := sess.store.LoadErr(); loadErr != nil {
		return fmt.Errorf("reading persisted cart: %w", loadErr)
	}
	return fn(sess.store)
}

// finish waits for the mutation to reach storage, then prints the result.
func finish(cmd *cobra.Command, s *cart.Store, w *cart.Write) error {
	if err := w.Wait(cmd.Context()); err != nil {
		return fmt.Errorf("persisting cart: %w", err)
	}
	snap := s.Products()
	if w != nil {
		snap = w.Snapshot()
	}
	return printSnapshot(cmd.OutOrStdout(), snap)
}

func printSnapshot(out io.Writer, snap cart.Snapshot) error {
	enc := json.NewEncoder(out)
	return enc.Encode(cartView{Products: snap.Items(), Version: snap.Version()})
}
