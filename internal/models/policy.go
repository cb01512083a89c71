package models

// GateConfig from yaml
type GateConfig struct {
	Name  string     `yaml:"name"`
	Rules []GateRule `yaml:"rules"`
}

// GateRule cel rule guarding one tool
type GateRule struct {
	Tool       string `yaml:"tool"`
	Expr       string `yaml:"expr"`
	FailureMsg string `yaml:"failure_msg"`
}
