// Command megevm is the thin CLI runner around the execution engine (spec §6
// "Flag surface"): it is out of scope for correctness testing, but parses
// the fork/prestate/tx flag surface, wires a Database from a prestate dump,
// and drives one Transaction Handler run, printing the resulting
// ExecutionResult and state delta.
//
// Grounded on the retrieval pack's urfave/cli/v2 app/command shape
// (cmd/evm-node/main.go's app.Flags/app.Action split).
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/bucketoracle"
	"github.com/megaeth-labs/mega-evm-sub000/internal/prestate"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	"github.com/megaeth-labs/mega-evm-sub000/state"
	"github.com/megaeth-labs/mega-evm-sub000/txn"
	"github.com/megaeth-labs/mega-evm-sub000/vm"
	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "megevm",
	Usage: "run one transaction against a prestate fixture under the mega-evm execution engine",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "fork", Usage: "active hardfork: equivalence|mini-rex|rex|rex2", Value: "rex"},
		&cli.StringFlag{Name: "prestate", Usage: "path to a prestate JSON fixture"},
		&cli.Uint64Flag{Name: "block-number", Usage: "block number to execute at", Value: 1},
		&cli.StringSliceFlag{Name: "faucet", Usage: "address+=value credit applied before execution; value is a base-10 integer in wei, unit suffixes are not accepted"},
		&cli.StringSliceFlag{Name: "blockhash", Usage: "number:hash override for BLOCKHASH"},
		&cli.StringFlag{Name: "sender", Usage: "transaction sender address"},
		&cli.StringFlag{Name: "receiver", Usage: "transaction target address (omit for CREATE)"},
		&cli.StringFlag{Name: "value", Usage: "transaction value, in wei"},
		&cli.StringFlag{Name: "input", Usage: "0x-prefixed calldata"},
		&cli.Uint64Flag{Name: "gas", Usage: "transaction gas limit", Value: 10_000_000},
		&cli.StringFlag{Name: "gas-price", Usage: "transaction gas price, in wei", Value: "0"},
		&cli.Uint64Flag{Name: "nonce", Usage: "transaction nonce"},
		&cli.Uint64Flag{Name: "coinbase-gas-limit", Usage: "block gas limit", Value: 30_000_000},
	},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "megevm:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var dump prestate.Dump
	if path := c.String("prestate"); path != "" {
		d, err := prestate.Load(path)
		if err != nil {
			return err
		}
		dump = d
	}

	faucet, err := parseFaucet(c.StringSlice("faucet"))
	if err != nil {
		return err
	}
	blockHashes, err := parseBlockHashes(c.StringSlice("blockhash"))
	if err != nil {
		return err
	}

	db := prestate.NewDatabase(dump, faucet, blockHashes)
	journal := state.New(db)

	cfg, err := chainConfigForFork(c.String("fork"))
	if err != nil {
		return err
	}

	blockNumber := new(big.Int).SetUint64(c.Uint64("block-number"))

	handler := &txn.Handler{
		Journal: journal,
		Config:  cfg,
		Block: vm.BlockContext{
			Coinbase:    common.Address{},
			GasLimit:    c.Uint64("coinbase-gas-limit"),
			BlockNumber: blockNumber,
			BaseFee:     new(big.Int),
			Difficulty:  new(big.Int),
			BlobBaseFee: new(big.Int),
			GetHash: func(n uint64) common.Hash {
				h, _ := journal.BlockHash(n)
				return h
			},
		},
		Oracle: staticOracle{},
	}

	tx, err := buildTransaction(c)
	if err != nil {
		return err
	}

	outcome, err := handler.Run(tx, blockNumber)
	if err != nil {
		return fmt.Errorf("transaction rejected: %w", err)
	}

	return printResult(outcome, journal, dump)
}

// staticOracle answers a fixed fallback capacity for every bucket; the CLI
// is a debugging aid, not a production node, so a live bucket-sizing service
// is out of scope (spec §1).
type staticOracle struct{}

func (staticOracle) CapacityOf(id bucketoracle.BucketID) (uint64, error) { return 0, nil }

func parseFaucet(entries []string) (map[common.Address]*big.Int, error) {
	out := make(map[common.Address]*big.Int)
	for _, e := range entries {
		addrPart, valPart, ok := strings.Cut(e, "+=")
		if !ok {
			return nil, fmt.Errorf("malformed faucet entry %q, want address+=value", e)
		}
		v, ok := new(big.Int).SetString(strings.TrimSpace(valPart), 10)
		if !ok {
			return nil, fmt.Errorf("malformed faucet value %q", valPart)
		}
		out[common.HexToAddress(strings.TrimSpace(addrPart))] = v
	}
	return out, nil
}

func parseBlockHashes(entries []string) (map[uint64]common.Hash, error) {
	out := make(map[uint64]common.Hash)
	for _, e := range entries {
		numPart, hashPart, ok := strings.Cut(e, ":")
		if !ok {
			return nil, fmt.Errorf("malformed blockhash override %q, want number:hash", e)
		}
		var n uint64
		if _, err := fmt.Sscanf(numPart, "%d", &n); err != nil {
			return nil, fmt.Errorf("malformed block number in %q: %w", e, err)
		}
		out[n] = common.HexToHash(strings.TrimSpace(hashPart))
	}
	return out, nil
}

func chainConfigForFork(fork string) (*megaparams.ChainConfig, error) {
	cfg := &megaparams.ChainConfig{ChainID: big.NewInt(1)}
	zero := big.NewInt(0)
	switch strings.ToLower(fork) {
	case "equivalence":
	case "mini-rex", "minirex":
		cfg.MiniRexBlock = zero
	case "rex":
		cfg.MiniRexBlock, cfg.RexBlock = zero, zero
	case "rex2":
		cfg.MiniRexBlock, cfg.RexBlock, cfg.Rex2Block = zero, zero, zero
	default:
		return nil, fmt.Errorf("unknown fork %q", fork)
	}
	return cfg, nil
}

func buildTransaction(c *cli.Context) (*megatypes.Transaction, error) {
	tx := &megatypes.Transaction{
		Caller:   common.HexToAddress(c.String("sender")),
		GasLimit: c.Uint64("gas"),
		Nonce:    c.Uint64("nonce"),
		ChainID:  big.NewInt(1),
	}

	if receiver := c.String("receiver"); receiver != "" {
		tx.Kind = megatypes.CallKindCall
		tx.Target = common.HexToAddress(receiver)
	} else {
		tx.Kind = megatypes.CallKindCreate
	}

	value := new(big.Int)
	if v := c.String("value"); v != "" {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("malformed value %q", v)
		}
		value = n
	}
	tx.Value = value

	gasPrice := new(big.Int)
	if gp := c.String("gas-price"); gp != "" {
		n, ok := new(big.Int).SetString(gp, 10)
		if !ok {
			return nil, fmt.Errorf("malformed gas-price %q", gp)
		}
		gasPrice = n
	}
	tx.GasPrice = gasPrice

	if in := c.String("input"); in != "" {
		data := common.FromHex(in)
		tx.Input = data
	}
	tx.EncodedLength = uint64(len(tx.Input)) + 100

	return tx, nil
}

func printResult(outcome *txn.Outcome, journal *state.Journal, base prestate.Dump) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Result); err != nil {
		return err
	}
	dump := prestate.DumpDelta(base, journal.BuildDelta())
	return enc.Encode(dump)
}
