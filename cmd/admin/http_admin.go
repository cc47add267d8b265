package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func claimCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	fs := flag.NewFlagSet("claim "+args[0], flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	id := fs.String("id", "", "claim id (get, rm)")
	file := fs.String("file", "", "claim json file, - for stdin (put)")
	_ = fs.Parse(args[1:])

	switch args[0] {
	case "get":
		call(http.MethodGet, endpoint(*baseURL, "/v1/claims/"+url.PathEscape(need(*id, "-id"))), nil)
	case "rm":
		call(http.MethodDelete, endpoint(*baseURL, "/v1/claims/"+url.PathEscape(need(*id, "-id"))), nil)
	case "put":
		var body []byte
		var err error
		if need(*file, "-file") == "-" {
			body, err = io.ReadAll(os.Stdin)
		} else {
			body, err = os.ReadFile(*file)
		}
		if err != nil {
			fail("read", err)
		}
		call(http.MethodPost, endpoint(*baseURL, "/v1/claims"), body)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func visualizeCmd(args []string) {
	fs := flag.NewFlagSet("visualize", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	viewer := fs.String("viewer", "", "connected viewer id")
	claim := fs.String("claim", "", "claim id")
	nearby := fs.Int("nearby", 0, "outline claims within this radius")
	vizType := fs.String("type", "", "visualization type (claim, admin_claim, subdivision, ...)")
	provider := fs.String("provider", "", "visualization provider")
	_ = fs.Parse(args)

	q := url.Values{}
	for k, v := range map[string]string{"claim": *claim, "type": *vizType, "provider": *provider} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if *nearby > 0 {
		q.Set("nearby", strconv.Itoa(*nearby))
	}
	path := "/v1/viewers/" + url.PathEscape(need(*viewer, "-viewer")) + "/visualize?" + q.Encode()
	call(http.MethodPost, endpoint(*baseURL, path), nil)
}

func revertCmd(args []string) {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	viewer := fs.String("viewer", "", "connected viewer id")
	_ = fs.Parse(args)
	call(http.MethodPost, endpoint(*baseURL, "/v1/viewers/"+url.PathEscape(need(*viewer, "-viewer"))+"/revert"), nil)
}

func healthCmd(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodGet, endpoint(*baseURL, "/healthz"), nil)
}

func endpoint(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

func need(v, flagName string) string {
	if strings.TrimSpace(v) == "" {
		fmt.Fprintln(os.Stderr, "missing", flagName)
		os.Exit(2)
	}
	return v
}

// call prints the response body and exits non-zero on a non-2xx status.
func call(method, u string, body []byte) {
	status, b, err := do(method, u, body)
	if err != nil {
		fail("request", err)
	}
	if len(b) > 0 {
		fmt.Println(strings.TrimSpace(string(b)))
	}
	if status/100 != 2 {
		os.Exit(1)
	}
}

func do(method, u string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}
