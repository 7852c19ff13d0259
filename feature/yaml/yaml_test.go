package yaml

import "testing"

func TestReadFeatures_DeclarationOrderPreserved(t *testing.T) {
	md := []byte(`
features:
  outlook: [sunny, overcast, rain]
  temp: [hot, mild, cool]
  humidity: [high, normal]
  play: ["yes", "no"]
`)
	features, err := ReadFeatures(md)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	wantNames := []string{"outlook", "temp", "humidity", "play"}
	if len(features) != len(wantNames) {
		t.Fatalf("expected %d features, got %d", len(wantNames), len(features))
	}
	for i, name := range wantNames {
		if features[i].Name() != name {
			t.Errorf("expected feature %d to be %s, got %s", i, name, features[i].Name())
		}
	}
}

func TestReadFeatures_ValueOrderPreserved(t *testing.T) {
	md := []byte("features:\n  temp: [hot, mild, cool]\n")
	features, err := ReadFeatures(md)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	values := features[0].AvailableValues()
	want := []string{"hot", "mild", "cool"}
	for i, v := range want {
		if values[i] != v {
			t.Errorf("expected value %d to be %s, got %s", i, v, values[i])
		}
	}
}

func TestReadFeatures_MissingFeaturesProperty(t *testing.T) {
	_, err := ReadFeatures([]byte("metadata: {}\n"))
	if err == nil {
		t.Error("expected an error for a document without feature information")
	}
}

func TestReadFeatures_NonListDeclaration(t *testing.T) {
	_, err := ReadFeatures([]byte("features:\n  temp: continuous\n"))
	if err == nil {
		t.Error("expected an error for a feature declared without a list of values")
	}
}

func TestReadFeatures_InvalidYAML(t *testing.T) {
	_, err := ReadFeatures([]byte("features: ["))
	if err == nil {
		t.Error("expected an error for malformed yml")
	}
}
