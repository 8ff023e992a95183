package kubeclient

import (
	"os"

	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Return auto-detected system/user Kubernetes configuration,
// either from an explicit configuration file, in-cluster autoconfiguration, or a $KUBECONFIG file.
//
// qps and burst bound the client-side request rate against the API server.
func SystemConfig(kubeconfig string, qps float32, burst int) (*rest.Config, error) {
	cfg, err := systemConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	cfg.QPS = qps
	cfg.Burst = burst
	cfg.WarningHandler = NewWarningHandler(log.WithField("component", "kubeclient"))
	return cfg, nil
}

func systemConfig(kubeconfig string) (*rest.Config, error) {
	if len(kubeconfig) > 0 {
		log.Tracef("Using configuration file %s", kubeconfig)
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	cfg, err := rest.InClusterConfig()
	if err == nil {
		log.Tracef("Running inside Kubernetes, using in-cluster configuration")
		return cfg, nil
	}
	cf := kubeConfigPath()
	log.Tracef("Not running inside Kubernetes, using configuration file %s", cf)
	return clientcmd.BuildConfigFromFlags("", cf)
}

func DefaultClient(kubeconfig string, qps float32, burst int) (Interface, error) {
	config, err := SystemConfig(kubeconfig, qps, burst)
	if err != nil {
		return nil, err
	}
	return New(config)
}

func kubeConfigPath() string {
	env, found := os.LookupEnv("KUBECONFIG")
	if !found {
		return clientcmd.RecommendedHomeFile
	}
	return env
}
