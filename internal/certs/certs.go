// Package certs shells out to cfssl to mint per-device client certificates
// signed by an on-disk CA, for the create-device admin verb. Grounded on
// original_source/src/certs.rs's generate_client_certificate and the
// teacher's exec.CommandContext timeout idiom in cmd.go.
package certs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/warthog618/shadowd/internal/apperrors"
)

// Config locates the CA material and the cfssl binary.
type Config struct {
	CertDir      string        // holds ca.pem, ca-key.pem, cfssl.json
	CfsslPath    string        // optional path to the cfssl binary; "cfssl" on PATH if empty
	Organization string        // optional "O" field on the issued certificate
	Timeout      time.Duration // zero means no timeout
}

// Response mirrors cfssl gencert's JSON output.
type Response struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
	CSR  string `json:"csr"`
}

type gencertRequest struct {
	CN    string           `json:"CN"`
	Hosts []string         `json:"hosts"`
	Key   gencertRequestKey `json:"key"`
	Names []gencertName    `json:"names,omitempty"`
}

type gencertRequestKey struct {
	Algo string `json:"algo"`
	Size int    `json:"size"`
}

type gencertName struct {
	Organization string `json:"O"`
}

// GenerateClientCertificate mints a client certificate for clientID, signed
// by the CA in cfg.CertDir, via "cfssl gencert -profile client". A fresh
// UUID tags the issuance in any error returned, so a failed issuance can
// be traced back to its request.
func GenerateClientCertificate(cfg Config, clientID string) (Response, error) {
	caCertPath := filepath.Join(cfg.CertDir, "ca.pem")
	caKeyPath := filepath.Join(cfg.CertDir, "ca-key.pem")
	cfsslJSONPath := filepath.Join(cfg.CertDir, "cfssl.json")

	for _, required := range []string{caCertPath, caKeyPath, cfsslJSONPath} {
		if _, err := os.Stat(required); err != nil {
			return Response{}, apperrors.Wrapf(err, apperrors.KindKv, "missing CA material: %s", required)
		}
	}

	req := gencertRequest{
		CN:    clientID,
		Hosts: []string{""},
		Key:   gencertRequestKey{Algo: "rsa", Size: 2048},
	}
	if cfg.Organization != "" {
		req.Names = []gencertName{{Organization: cfg.Organization}}
	}
	requestJSON, err := json.Marshal(req)
	if err != nil {
		return Response{}, apperrors.Wrap(err, apperrors.KindSerialization, "marshal cfssl request")
	}

	cfsslBin := cfg.CfsslPath
	if cfsslBin == "" {
		cfsslBin = "cfssl"
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	issuanceID := uuid.NewString()
	cmd := exec.CommandContext(ctx, cfsslBin, "gencert",
		"-ca", caCertPath,
		"-ca-key", caKeyPath,
		"-config", cfsslJSONPath,
		"-profile", "client",
		"-",
	)
	cmd.Stdin = bytes.NewReader(requestJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Response{}, apperrors.Wrapf(err, apperrors.KindKv,
			"cfssl gencert failed (issuance %s): %s", issuanceID, stderr.String())
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Response{}, apperrors.Wrapf(err, apperrors.KindSerialization,
			"parse cfssl response (issuance %s)", issuanceID)
	}
	return resp, nil
}

// WriteMaterial persists a minted certificate and key under dir as
// "<clientID>.pem" and "<clientID>-key.pem", returning their paths.
func WriteMaterial(dir, clientID string, resp Response) (certPath, keyPath string, err error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", "", apperrors.Wrap(err, apperrors.KindKv, "create device cert directory")
	}
	certPath = filepath.Join(dir, fmt.Sprintf("%s.pem", clientID))
	keyPath = filepath.Join(dir, fmt.Sprintf("%s-key.pem", clientID))

	if err := os.WriteFile(certPath, []byte(resp.Cert), 0600); err != nil {
		return "", "", apperrors.Wrap(err, apperrors.KindKv, "write device certificate")
	}
	if err := os.WriteFile(keyPath, []byte(resp.Key), 0600); err != nil {
		return "", "", apperrors.Wrap(err, apperrors.KindKv, "write device key")
	}
	return certPath, keyPath, nil
}
