package certs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClientCertificateFailsFastOnMissingCAMaterial(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateClientCertificate(Config{CertDir: dir}, "device-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing CA material")
}

func TestGenerateClientCertificateInvokesConfiguredBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake cfssl script is a shell script")
	}
	dir := t.TempDir()
	for _, name := range []string{"ca.pem", "ca-key.pem", "cfssl.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("placeholder"), 0600))
	}

	fakeCfssl := filepath.Join(dir, "fake-cfssl.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" +
		`{"cert":"CERT","key":"KEY","csr":"CSR"}` + "\nEOF\n"
	require.NoError(t, os.WriteFile(fakeCfssl, []byte(script), 0700))

	resp, err := GenerateClientCertificate(Config{CertDir: dir, CfsslPath: fakeCfssl}, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "CERT", resp.Cert)
	assert.Equal(t, "KEY", resp.Key)
}

func TestWriteMaterialWritesCertAndKeyFiles(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath, err := WriteMaterial(dir, "device-1", Response{Cert: "CERT", Key: "KEY"})
	require.NoError(t, err)

	certData, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, "CERT", string(certData))

	keyData, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, "KEY", string(keyData))
}
