package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"RGBStd/internal/codec"
	"RGBStd/internal/containers"
	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/logger"
	"RGBStd/internal/relay"
)

const usage = `Usage: rgbx <command> [arguments]

Commands:
  id <file>              print the transfer id of a container file
  inspect <file>         print the bundles and the operation index
  send <file> <addr>     deliver a transfer to an rgbd node
  sample <file>          write a sample transfer container
`

// errUsage is returned for malformed command lines.
var errUsage = errors.New("invalid arguments")

func main() {
	logger.Init(logger.LevelFromEnv())

	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a command line.
func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "id":
		return withFile(rest, 1, func(c *containers.Consignment) error { return printID(out, c) })
	case "inspect":
		return withFile(rest, 1, func(c *containers.Consignment) error { return inspect(out, c) })
	case "send":
		return withFile(rest, 2, func(c *containers.Consignment) error { return send(out, c, rest[1]) })
	case "sample":
		return sample(rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// withFile decodes the container named by the first argument.
func withFile(args []string, want int, fn func(c *containers.Consignment) error) error {
	if len(args) != want {
		return fmt.Errorf("%w: want %d arguments, got %d", errUsage, want, len(args))
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s:\n%w", args[0], err)
	}

	c, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s:\n%w", args[0], err)
	}

	return fn(c)
}

func printID(out io.Writer, c *containers.Consignment) error {
	id, err := c.TransferID()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, id)

	return nil
}

// inspect prints the contract, the bundles with their witnesses and the terminals.
func inspect(out io.Writer, c *containers.Consignment) error {
	id, err := c.TransferID()
	if err != nil {
		return err
	}

	ic := containers.NewIndexed(c)

	fmt.Fprintf(out, "transfer   %s\n", id)
	fmt.Fprintf(out, "contract   %s\n", c.ContractID())
	fmt.Fprintf(out, "schema     %s\n", c.Schema.Name)
	fmt.Fprintf(out, "operations %d indexed, %d extensions\n", ic.Index().Len(), len(c.Extensions))

	it := ic.BundleIDs()
	for {
		bundleID, ok := it.Next()
		if !ok {
			break
		}

		ab, _ := ic.AnchoredBundle(bundleID)
		fmt.Fprintf(out, "bundle %s witness %s\n", bundleID, ab.Anchor.WitnessID())

		for i := range ab.Bundle.KnownTransitions {
			fmt.Fprintf(out, "  transition %s\n", ab.Bundle.KnownTransitions[i].ID())
		}
	}

	for _, t := range ic.Terminals() {
		fmt.Fprintf(out, "terminal %s %s\n", t.Bundle, t.Seal)
	}

	return nil
}

// send delivers c with a throwaway identity.
func send(out io.Writer, c *containers.Consignment, addr string) error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key:\n%w", err)
	}

	node, err := relay.NewNode(relay.Config{PrivateKey: priv})
	if err != nil {
		return err
	}
	defer node.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := node.Send(ctx, addr, c)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "delivered %s\n", id)

	return nil
}

// sample writes a sample transfer to the named file.
func sample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	bundles := fs.Int("bundles", 2, "Number of bundles")
	perBundle := fs.Int("transitions", 2, "Transitions per bundle")
	seed := fs.Uint64("seed", 0, "Seed distinguishing samples")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("%w: sample needs an output file", errUsage)
	}

	c, err := containerstest.Build(containerstest.Options{
		Bundles:   *bundles,
		PerBundle: *perBundle,
		Seed:      *seed,
	})
	if errors.Is(err, containerstest.ErrOptions) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err != nil {
		return err
	}

	data, err := codec.Encode(c)
	if err != nil {
		return err
	}

	return os.WriteFile(fs.Arg(0), data, 0o644)
}
