package shadow

import "reflect"

// mergeNode recursively folds an update object into a stored object,
// returning new current/metadata values rather than mutating in place
// (SPEC_FULL.md §9's "pure function... returning new values" redesign).
// A null leaf in update deletes the same key from both current and
// metadata; any other leaf write stamps metadata with timestamp.
// Grounded on original_source/src/shadow.rs's update_recursive.
func mergeNode(current interface{}, update map[string]interface{}, metadata interface{}, timestamp uint64) (interface{}, interface{}) {
	currentObj, _ := current.(map[string]interface{})
	if currentObj == nil {
		currentObj = map[string]interface{}{}
	} else {
		currentObj = cloneMap(currentObj)
	}
	metadataObj, _ := metadata.(map[string]interface{})
	if metadataObj == nil {
		metadataObj = map[string]interface{}{}
	} else {
		metadataObj = cloneMap(metadataObj)
	}

	for key, val := range update {
		if val == nil {
			delete(currentObj, key)
			delete(metadataObj, key)
			continue
		}
		if childUpdate, isObj := val.(map[string]interface{}); isObj {
			childCurrent, childMeta := mergeNode(currentObj[key], childUpdate, metadataObj[key], timestamp)
			currentObj[key] = childCurrent
			metadataObj[key] = childMeta
			continue
		}
		currentObj[key] = val
		metadataObj[key] = timestamp
	}
	return currentObj, metadataObj
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// diffRecursive computes the recursive diff of reported vs desired: keys
// present in desired but absent or unequal in reported appear in the
// result; objects recurse; primitives/arrays compare by value equality.
// Returns (nil, false) when there is no difference.
func diffRecursive(reported, desired interface{}) (interface{}, bool) {
	reportedObj, rOk := reported.(map[string]interface{})
	desiredObj, dOk := desired.(map[string]interface{})
	if rOk && dOk {
		deltaObj := map[string]interface{}{}
		for key, desVal := range desiredObj {
			repVal, exists := reportedObj[key]
			if !exists {
				deltaObj[key] = desVal
				continue
			}
			if !jsonEqual(repVal, desVal) {
				if diff, ok := diffRecursive(repVal, desVal); ok {
					deltaObj[key] = diff
				}
			}
		}
		if len(deltaObj) == 0 {
			return nil, false
		}
		return deltaObj, true
	}
	if !jsonEqual(reported, desired) {
		return desired, true
	}
	return nil, false
}

func jsonEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
