package types

// Credentials are merged into the system configuration document.
// Empty fields are left untouched in the document.
type Credentials struct {
	APName     string `json:"ap_name,omitempty" yaml:"ap_name,omitempty"`
	APPassword string `json:"ap_password,omitempty" yaml:"ap_password,omitempty"`
	MQTTHost   string `json:"mqtt_host,omitempty" yaml:"mqtt_host,omitempty"`
}

// NodeTarget addresses one node directory below a configuration root.
type NodeTarget struct {
	Folder   string `json:"folder" yaml:"folder"`
	NodeName string `json:"node_name" yaml:"node_name"`
}

// DeployRequest is one complete configure-and-deploy request.
type DeployRequest struct {
	NodeTarget  `yaml:",inline"`
	Controller  string      `json:"controller" yaml:"controller"`
	Slots       Slots       `json:"slots" yaml:"slots"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
	Transport   string      `json:"transport" yaml:"transport"`
	Port        string      `json:"port,omitempty" yaml:"port,omitempty"`
}

// InitRequest initializes a node scaffold and merges credentials only.
type InitRequest struct {
	NodeTarget  `yaml:",inline"`
	Credentials Credentials `json:"credentials" yaml:"credentials"`
}
