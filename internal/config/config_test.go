package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Load", func() {
	var tempDir, configFile string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "shadowd-config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "shadowd.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Context("when no config file is present", func() {
		It("falls back to defaults", func() {
			cfg := Load(configFile)
			Expect(cfg.MustGet("bind_api").String()).To(Equal(":8080"))
			Expect(cfg.MustGet("mqtt.bind_v3").String()).To(Equal(":8883"))
			Expect(cfg.MustGet("database.txn_retries").Int()).To(Equal(int64(5)))
			Expect(cfg.MustGet("log.level").String()).To(Equal("info"))
		})
	})

	Context("when a config file overrides a default", func() {
		BeforeEach(func() {
			content := "log:\n  level: debug\nmqtt:\n  bind_v3: \":18883\"\n"
			Expect(os.WriteFile(configFile, []byte(content), 0600)).To(Succeed())
		})

		It("prefers the file value over the built-in default", func() {
			cfg := Load(configFile)
			Expect(cfg.MustGet("log.level").String()).To(Equal("debug"))
			Expect(cfg.MustGet("mqtt.bind_v3").String()).To(Equal(":18883"))
			Expect(cfg.MustGet("database.path").String()).To(Equal("./shadowd.bbolt"))
		})
	})

	Context("when an environment variable overrides the file and defaults", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0600)).To(Succeed())
			Expect(os.Setenv("SHADOWD_LOG_LEVEL", "warn")).To(Succeed())
		})
		AfterEach(func() {
			Expect(os.Unsetenv("SHADOWD_LOG_LEVEL")).To(Succeed())
		})

		It("takes precedence", func() {
			cfg := Load(configFile)
			Expect(cfg.MustGet("log.level").String()).To(Equal("warn"))
		})
	})
})
