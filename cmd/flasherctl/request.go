package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// deployFile is the on-disk request layout. Slots is a list so that
// files may name fewer than three slots.
type deployFile struct {
	Folder      string                    `yaml:"folder"`
	NodeName    string                    `yaml:"node_name"`
	Controller  string                    `yaml:"controller"`
	Slots       []types.SlotConfiguration `yaml:"slots"`
	Credentials types.Credentials         `yaml:"credentials"`
	Transport   string                    `yaml:"transport"`
	Port        string                    `yaml:"port"`
}

func readFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseDeployRequest(data []byte) (*types.DeployRequest, error) {
	var f deployFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing request: %w", err)
	}
	if len(f.Slots) > types.SlotCount {
		return nil, fmt.Errorf("parsing request: %d slots given, at most %d allowed", len(f.Slots), types.SlotCount)
	}

	req := &types.DeployRequest{
		NodeTarget:  types.NodeTarget{Folder: f.Folder, NodeName: f.NodeName},
		Controller:  f.Controller,
		Credentials: f.Credentials,
		Transport:   f.Transport,
		Port:        f.Port,
	}
	for i, slot := range f.Slots {
		req.Slots.SetSlot(i+1, slot)
	}
	return req, nil
}

func loadDeployRequest(path string) (*types.DeployRequest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return parseDeployRequest(data)
}

func loadInitRequest(path string) (*types.InitRequest, error) {
	req, err := loadDeployRequest(path)
	if err != nil {
		return nil, err
	}
	return &types.InitRequest{NodeTarget: req.NodeTarget, Credentials: req.Credentials}, nil
}
