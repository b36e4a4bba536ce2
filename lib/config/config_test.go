// config_test.go tests config files
package config

import (
	"testing"
)

// fileToTest is a relative path to the configuration file to test (ie. cmd/conf.json)
var fileToTest string = "../../cmd/conf.json"

// TestConfig extracts config from a file and checks values loaded
func TestConfig(t *testing.T) {
	// extract configuration
	conf, err := ExtractConfiguration(fileToTest)
	if err != nil {
		t.Errorf("Error reading config file:%e\n", err)
	} else {
		// lets check the port
		if conf.Port != "4000" {
			t.Errorf("config port is not the expected %s", conf.Port)
		}
		// and the ledgers
		if len(conf.Ledgers) != 2 {
			t.Errorf("ledgers do not match the expected %v", conf.Ledgers)
		} else {
			if conf.Ledgers[0].Name != "besu-local" || conf.Ledgers[0].Type != LedgerBesu ||
				conf.Ledgers[1].Name != "quorum-local" || conf.Ledgers[1].Type != LedgerQuorum {
				t.Errorf("ledgers do not match the expected %v", conf.Ledgers)
			}

			if conf.Ledgers[0].HTLCAddress == "" {
				t.Errorf("besu-local should carry an HTLC contract address")
			}
		}
		// and the keychains
		if len(conf.Keychains) != 3 {
			t.Errorf("keychains do not match the expected %v", conf.Keychains)
		} else if conf.Keychains[2].Type != KeychainHDSeed || conf.Keychains[2].Seed == "" {
			t.Errorf("hd-seed keychain is not properly declared %v", conf.Keychains[2])
		}
		// and the receipt poll interval
		if conf.PollIntervalMs != 1000 {
			t.Errorf("poll interval is not the expected %d", conf.PollIntervalMs)
		}
	}
}
