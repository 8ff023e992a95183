package backup

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ghodss/yaml"
	"github.com/nais/release/pkg/k8sutils"
	"github.com/nais/release/pkg/release/kubeclient"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const lastAppliedConfiguration = "kubectl.kubernetes.io/last-applied-configuration"

// Record describes the backup taken of one application before it was released.
// ExistedBeforeRun is false when none of the application's resources were present in the cluster.
// Err is set when the live state could not be queried or the snapshot could not be stored;
// the snapshot must then be considered unavailable.
type Record struct {
	App              string
	Timestamp        string
	Key              string
	ExistedBeforeRun bool
	Err              error
}

// Available returns true if there is a snapshot to restore from.
func (r Record) Available() bool {
	return r.Err == nil && r.ExistedBeforeRun
}

// Key returns the storage key of a snapshot. Distinct (app, timestamp) pairs always yield distinct keys.
func Key(app, timestamp string) string {
	return url.PathEscape(timestamp) + "/" + url.PathEscape(app) + ".yaml"
}

type Manager struct {
	Client  kubeclient.Interface
	Storage Storage
}

// Backup snapshots the live state of the given resources. Failures are never returned;
// they are logged and recorded in the returned Record.
func (m *Manager) Backup(ctx context.Context, logger *log.Entry, app string, resources []unstructured.Unstructured, timestamp string) Record {
	record := Record{
		App:       app,
		Timestamp: timestamp,
		Key:       Key(app, timestamp),
	}

	live, err := m.live(ctx, resources)
	if err != nil {
		logger.Errorf("Unable to query current state for backup: %s", err)
		record.Err = err
		return record
	}

	if len(live) == 0 {
		logger.Infof("No prior deployment found; nothing to back up")
		return record
	}
	record.ExistedBeforeRun = true

	data, err := EncodeSnapshot(live)
	if err == nil {
		err = m.Storage.Put(ctx, record.Key, data)
	}
	if err != nil {
		logger.Errorf("Unable to store backup snapshot %s: %s", record.Key, err)
		record.Err = err
		return record
	}

	logger.Infof("Backed up %d resources to %s", len(live), record.Key)
	return record
}

func (m *Manager) live(ctx context.Context, resources []unstructured.Unstructured) ([]unstructured.Unstructured, error) {
	live := make([]unstructured.Unstructured, 0, len(resources))
	for i := range resources {
		identifier := k8sutils.ResourceIdentifier(resources[i])
		ri, err := m.Client.ResourceInterface(&resources[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", identifier, err)
		}
		existing, err := ri.Get(ctx, resources[i].GetName(), metav1.GetOptions{})
		if errors.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("get %s: %w", identifier, err)
		}
		live = append(live, sanitize(*existing))
	}
	return live, nil
}

// sanitize removes server-populated fields so that the object can be submitted again.
func sanitize(resource unstructured.Unstructured) unstructured.Unstructured {
	resource.SetResourceVersion("")
	resource.SetUID("")
	resource.SetCreationTimestamp(metav1.Time{})
	resource.SetManagedFields(nil)
	resource.SetSelfLink("")
	unstructured.RemoveNestedField(resource.Object, "metadata", "generation")
	unstructured.RemoveNestedField(resource.Object, "status")

	annotations := resource.GetAnnotations()
	if _, ok := annotations[lastAppliedConfiguration]; ok {
		delete(annotations, lastAppliedConfiguration)
		resource.SetAnnotations(annotations)
	}

	return resource
}

// EncodeSnapshot serializes resources as a YAML List.
func EncodeSnapshot(resources []unstructured.Unstructured) ([]byte, error) {
	items := make([]interface{}, len(resources))
	for i := range resources {
		items[i] = resources[i].Object
	}
	list := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "List",
		"items":      items,
	}
	data, err := yaml.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) ([]unstructured.Unstructured, error) {
	json, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	list := &unstructured.UnstructuredList{}
	if err = list.UnmarshalJSON(json); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return list.Items, nil
}

// Restore reads back the snapshot of a record.
func (m *Manager) Restore(ctx context.Context, record Record) ([]unstructured.Unstructured, error) {
	data, err := m.Storage.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data)
}
