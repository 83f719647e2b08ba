// Package discovery finds scan targets inside a kubernetes cluster.
package discovery

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kvesta/portvuln/config"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Options select the cluster to talk to.
type Options struct {
	// Kubeconfig is searched in the usual places when empty.
	Kubeconfig string
	Server     string
	Token      string
	Insecure   bool
}

// Target is a service reachable through its cluster IP.
type Target struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Address   string `json:"address"`
	Ports     []int  `json:"ports"`
}

type Kubernetes struct {
	Client kubernetes.Interface
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ResolveKubeconfig returns explicit when set, otherwise the first config
// found among the user's ~/.kube/config, the k3s and the k0s defaults.
func ResolveKubeconfig(explicit string) string {
	if explicit != "" {
		return explicit
	}

	var candidates []string
	if home := homedir.HomeDir(); home != "" {
		candidates = []string{
			filepath.Join(home, ".kube", "config"),
			"/etc/rancher/k3s/k3s.yaml",
			"/etc/k0s/k0s.yaml",
		}
	} else {
		candidates = []string{
			"/etc/kubernetes/config/admin.conf",
			"/etc/rancher/k3s/k3s.yaml",
			"/etc/k0s/k0s.yaml",
		}
	}

	for _, c := range candidates {
		if exists(c) {
			return c
		}
	}

	// in-cluster config
	return ""
}

func New(opts Options) (*Kubernetes, error) {
	kubeconfig := ResolveKubeconfig(opts.Kubeconfig)

	kconfig, err := clientcmd.BuildConfigFromFlags(opts.Server, kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize kubernetes environment: %w", err)
	}

	if opts.Insecure {
		kconfig.Insecure = true
		kconfig.TLSClientConfig.CAData = nil
		kconfig.TLSClientConfig.CAFile = ""
	}
	if opts.Token != "" {
		kconfig.BearerToken = opts.Token
	}

	clientset, err := kubernetes.NewForConfig(kconfig)
	if err != nil {
		return nil, err
	}

	return &Kubernetes{Client: clientset}, nil
}

// Targets lists the services of namespace, all namespaces when empty.
// Headless services and services without TCP ports are skipped.
func (k *Kubernetes) Targets(ctx context.Context, namespace string) ([]Target, error) {
	log.Printf(config.Green("Listing kubernetes services"))

	services, err := k.Client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	targets := []Target{}
	for _, svc := range services.Items {
		ip := svc.Spec.ClusterIP
		if ip == "" || ip == corev1.ClusterIPNone {
			continue
		}

		ports := []int{}
		for _, p := range svc.Spec.Ports {
			if p.Protocol != "" && p.Protocol != corev1.ProtocolTCP {
				continue
			}
			ports = append(ports, int(p.Port))
		}
		if len(ports) == 0 {
			continue
		}

		targets = append(targets, Target{
			Name:      svc.Name,
			Namespace: svc.Namespace,
			Address:   ip,
			Ports:     ports,
		})
	}

	log.Printf("Found %d services to scan", len(targets))

	return targets, nil
}
