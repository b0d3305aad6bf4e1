package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"intentengine/cmd/internal/passphrase"
	"intentengine/crypto"
	"intentengine/rpc"
)

const (
	keygenCommand  = "keygen"
	addressCommand = "address"
	tokenCommand   = "token"
	callCommand    = "call"

	defaultPassEnv   = "INTENTCTL_PASSPHRASE"
	defaultSecretEnv = "INTENTD_JWT_SECRET"
	defaultEndpoint  = "http://127.0.0.1:8645"
	defaultKeystore  = "account.keystore"
	defaultIssuer    = "intentd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case keygenCommand:
		err = runKeygen(os.Args[2:], os.Stdout)
	case addressCommand:
		err = runAddress(os.Args[2:], os.Stdout)
	case tokenCommand:
		err = runToken(os.Args[2:], os.Stdout)
	case callCommand:
		err = runCall(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(keygenCommand, flag.ExitOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*keystorePath); err == nil {
			return fmt.Errorf("keystore file %s already exists (use --force to overwrite)", *keystorePath)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	pass, err := passphrase.NewSource(*passEnv, "keystore passphrase").Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, pass); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	fmt.Fprintln(out, key.PubKey().Address().String())
	return nil
}

func runAddress(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(addressCommand, flag.ExitOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Path to the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	fs.Parse(args)

	pass, err := passphrase.NewSource(*passEnv, "keystore passphrase").Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(*keystorePath, pass)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, key.PubKey().Address().String())
	return nil
}

// runToken issues a bearer token for an account. The signing secret is the
// one the daemon verifies with.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(tokenCommand, flag.ExitOnError)
	account := fs.String("account", "", "Bech32 account the token authenticates")
	secretEnv := fs.String("secret-env", defaultSecretEnv, "Environment variable containing the JWT secret")
	issuer := fs.String("issuer", defaultIssuer, "JWT issuer expected by the daemon")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	fs.Parse(args)

	addr, err := crypto.DecodePrefixed(strings.TrimSpace(*account), crypto.AccountPrefix)
	if err != nil {
		return fmt.Errorf("invalid --account: %w", err)
	}
	secret, err := passphrase.NewSource(*secretEnv, "JWT secret").Get()
	if err != nil {
		return err
	}
	token, err := rpc.IssueToken([]byte(secret), *issuer, addr, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runCall(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(callCommand, flag.ExitOnError)
	endpoint := fs.String("endpoint", defaultEndpoint, "JSON-RPC endpoint")
	token := fs.String("token", os.Getenv("INTENTCTL_TOKEN"), "Bearer token for authenticated methods")
	timeout := fs.Duration("timeout", 15*time.Second, "Request timeout")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intentctl call [flags] <method> [json-params]")
	}
	body, err := buildRequest(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, *endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(*token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(*token))
	}
	client := &http.Client{Timeout: *timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decoded rpc.RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(decoded.Result)
}

func buildRequest(method, rawParams string) ([]byte, error) {
	req := rpc.RPCRequest{JSONRPC: "2.0", Method: method, ID: 1}
	if trimmed := strings.TrimSpace(rawParams); trimmed != "" {
		if !json.Valid([]byte(trimmed)) {
			return nil, fmt.Errorf("params must be a JSON object")
		}
		req.Params = []json.RawMessage{json.RawMessage(trimmed)}
	}
	return json.Marshal(req)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: intentctl <command> [flags]

Commands:
  %s    Generate an account keystore
  %s   Print the account in a keystore
  %s     Issue a bearer token for an account
  %s      Send a JSON-RPC request
`, keygenCommand, addressCommand, tokenCommand, callCommand)
}
