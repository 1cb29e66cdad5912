package config

import (
	yaml3 "gopkg.in/yaml.v3"
	"sigs.k8s.io/kustomize/kyaml/yaml"
	"sigs.k8s.io/kustomize/kyaml/yaml/merge2"
	"sigs.k8s.io/kustomize/kyaml/yaml/walk"
)

// defaultConfig is a variable so that packagers can ship a different port layout.
var defaultConfig = `
debug: false
debugModules: []
disableANSI: false
logFile: ""
sentryDSN: ""
faults:
  host: ""
  pause: 300s
  shutdownGrace: 3s
  requireListeners: false
  reusePort: false
  acceptBackoff:
    min: 5ms
    max: 1s
  socket:
    immediate-termination:
      port: 8081
    reset-after-http-request-line:
      port: 8082
    reset-after-http-request-headers:
      port: 8083
    reset-after-http-request:
      port: 8084
    reset-after-http-response-line:
      port: 8085
    reset-incomplete-http-response:
      port: 8086
    reset-with-chopped-http-response-header:
      port: 8087
    reset-with-chopped-http-response-line:
      port: 8088
    timeout-before-http-request:
      port: 8089
    timeout-after-http-request:
      port: 8090
    timeout-after-http-response-headers:
      port: 8091
    valid-http-response:
      port: 8092
admin:
  port: 8080
`

func GetDefaultConfig() string {
	return defaultConfig
}

func SetDefaultConfig(cfgStr string) {
	defaultConfig = cfgStr
}

const InternalConfig = `
configPath: "."
`

func New() *Config {
	// merge default config with internal config
	mergedConfig, err := Merge(defaultConfig, InternalConfig)
	if err != nil {
		panic(err)
	}
	conf := &Config{}
	err = yaml3.Unmarshal([]byte(mergedConfig), conf)
	if err != nil {
		panic(err)
	}
	return conf
}

func Merge(srcStr, destStr string) (string, error) {
	return mergeStrings(srcStr, destStr, false, yaml.MergeOptions{})
}

// Reference: https://github.com/kubernetes-sigs/kustomize/blob/537c4fa5c2bf3292b273876f50c62ce1c81714d7/kyaml/yaml/merge2/merge2.go#L24
// VisitKeysAsScalars is set to true to enable merging comments.
// inferAssociativeLists is set to false to disable merging associative lists.
func mergeStrings(srcStr, destStr string, infer bool, mergeOptions yaml.MergeOptions) (string, error) {
	src, err := yaml.Parse(srcStr)
	if err != nil {
		return "", err
	}

	dest, err := yaml.Parse(destStr)
	if err != nil {
		return "", err
	}

	result, err := walk.Walker{
		Sources:               []*yaml.RNode{dest, src},
		Visitor:               merge2.Merger{},
		InferAssociativeLists: infer,
		VisitKeysAsScalars:    true,
		MergeOptions:          mergeOptions,
	}.Walk()
	if err != nil {
		return "", err
	}

	return result.String()
}
