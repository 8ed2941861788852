package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/certs"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/mqttbroker"
	"github.com/warthog618/shadowd/internal/store"
)

var skipSelfTest bool

var createDeviceCmd = &cobra.Command{
	Use:   "create-device {id}",
	Short: "Mint a client certificate for a device and register it",
	RunE:  runCreateDevice,
}

func init() {
	createDeviceCmd.Flags().BoolVar(&skipSelfTest, "skip-self-test", false,
		"don't attempt a loopback connect/publish against a running broker")
	rootCmd.AddCommand(createDeviceCmd)
}

func runCreateDevice(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return newUsageError("create-device requires exactly one argument: {id}")
	}
	deviceID := args[0]

	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.Open(cfg.MustGet("database.path").String())
	if err != nil {
		return err
	}
	defer db.Close()

	certDir := cfg.MustGet("cert_dir").String()
	resp, err := certs.GenerateClientCertificate(certs.Config{
		CertDir: certDir,
	}, deviceID)
	if err != nil {
		return err
	}

	tenantID := model.NewDefaultString(cfg.MustGet("tenant_id").String())
	meta := model.NewDeviceMetadata(deviceID, tenantID, uint64(time.Now().Unix())).
		WithCredentials(resp.Cert, resp.Key)
	if err := db.PutDeviceMetadata(meta); err != nil {
		return err
	}
	log.Info("device registered", zap.String("device_id", deviceID), zap.String("tenant_id", tenantID.String()))

	if skipSelfTest {
		fmt.Fprintln(cmd.OutOrStdout(), deviceID)
		return nil
	}

	deviceCertDir := filepath.Join(certDir, "devices")
	certPath, keyPath, err := certs.WriteMaterial(deviceCertDir, deviceID, resp)
	if err != nil {
		log.Warn("failed to write device cert material for self-test", zap.Error(err))
		fmt.Fprintln(cmd.OutOrStdout(), deviceID)
		return nil
	}

	selfTestTopic := fmt.Sprintf("%s/%s/%s/shadow/update",
		cfg.MustGet("processor.shadow_topic_prefix").String(), tenantID.String(), deviceID)
	broker := fmt.Sprintf("tcps://127.0.0.1%s", cfg.MustGet("mqtt.bind_v3").String())
	err = mqttbroker.PublishLoopback(mqttbroker.SelfTestConfig{
		Broker:   broker,
		DeviceID: deviceID,
		CertFile: certPath,
		KeyFile:  keyPath,
		CAFile:   filepath.Join(certDir, "ca.pem"),
	}, selfTestTopic, []byte(`{"state":{"reported":{}}}`))
	if err != nil {
		log.Warn("self-test publish failed; certificate was still issued and registered",
			zap.String("device_id", deviceID), zap.Error(err))
	} else {
		log.Info("self-test publish succeeded", zap.String("device_id", deviceID))
	}

	fmt.Fprintln(cmd.OutOrStdout(), deviceID)
	return nil
}
