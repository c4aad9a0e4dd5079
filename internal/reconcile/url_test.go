package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type fakeURLAPI struct {
	urls        map[string]string // function name -> url
	permissions map[string]bool   // function name -> grant present

	createInputs     []*lambda.CreateFunctionUrlConfigInput
	permissionInputs []*lambda.AddPermissionInput
	deleteCalls      []string

	permissionErr error
	omitURL       bool
}

func newFakeURLAPI() *fakeURLAPI {
	return &fakeURLAPI{
		urls:        make(map[string]string),
		permissions: make(map[string]bool),
	}
}

func (f *fakeURLAPI) GetFunctionUrlConfig(ctx context.Context, params *lambda.GetFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error) {
	name := aws.ToString(params.FunctionName)
	url, ok := f.urls[name]
	if !ok {
		return nil, &lambdatypes.ResourceNotFoundException{}
	}
	return &lambda.GetFunctionUrlConfigOutput{FunctionUrl: aws.String(url)}, nil
}

func (f *fakeURLAPI) CreateFunctionUrlConfig(ctx context.Context, params *lambda.CreateFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error) {
	f.createInputs = append(f.createInputs, params)

	name := aws.ToString(params.FunctionName)
	url := "https://abc123.lambda-url.us-east-1.on.aws/"
	f.urls[name] = url

	if f.omitURL {
		return &lambda.CreateFunctionUrlConfigOutput{}, nil
	}
	return &lambda.CreateFunctionUrlConfigOutput{FunctionUrl: aws.String(url)}, nil
}

func (f *fakeURLAPI) DeleteFunctionUrlConfig(ctx context.Context, params *lambda.DeleteFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionUrlConfigOutput, error) {
	f.deleteCalls = append(f.deleteCalls, aws.ToString(params.FunctionName))
	delete(f.urls, aws.ToString(params.FunctionName))
	return &lambda.DeleteFunctionUrlConfigOutput{}, nil
}

func (f *fakeURLAPI) AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.permissionInputs = append(f.permissionInputs, params)
	if f.permissionErr != nil {
		return nil, f.permissionErr
	}

	name := aws.ToString(params.FunctionName)
	if f.permissions[name] {
		return nil, &lambdatypes.ResourceConflictException{}
	}
	f.permissions[name] = true
	return &lambda.AddPermissionOutput{}, nil
}

func TestURLExistsAbsent(t *testing.T) {
	r := NewURLReconciler(newFakeURLAPI(), nil)

	url, ok, err := r.URLExists(context.Background(), "lambda-example")
	if err != nil {
		t.Fatalf("URLExists() error = %v", err)
	}
	if ok || url != "" {
		t.Errorf("URLExists() = (%q, %v) for an absent config", url, ok)
	}
}

func TestEnsureURLIdempotent(t *testing.T) {
	api := newFakeURLAPI()
	r := NewURLReconciler(api, nil)

	first, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig())
	if err != nil {
		t.Fatalf("first EnsureURL() error = %v", err)
	}

	second, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig())
	if err != nil {
		t.Fatalf("second EnsureURL() error = %v", err)
	}

	if first != second {
		t.Errorf("URLs differ across calls: %q vs %q", first, second)
	}
	if len(api.createInputs) != 1 {
		t.Errorf("CreateFunctionUrlConfig calls = %d, want exactly 1", len(api.createInputs))
	}
	if len(api.permissionInputs) != 1 {
		t.Errorf("AddPermission calls = %d, want exactly 1", len(api.permissionInputs))
	}
}

func TestEnsureURLGrantUsesFixedStatementID(t *testing.T) {
	api := newFakeURLAPI()
	r := NewURLReconciler(api, nil)

	if _, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig()); err != nil {
		t.Fatalf("EnsureURL() error = %v", err)
	}

	input := api.permissionInputs[0]
	if aws.ToString(input.StatementId) != PublicAccessStatementID {
		t.Errorf("StatementId = %q, want %q", aws.ToString(input.StatementId), PublicAccessStatementID)
	}
	if aws.ToString(input.Action) != "lambda:InvokeFunctionUrl" {
		t.Errorf("Action = %q", aws.ToString(input.Action))
	}
	if aws.ToString(input.Principal) != "*" {
		t.Errorf("Principal = %q, want *", aws.ToString(input.Principal))
	}
}

func TestEnsureURLSwallowsGrantConflict(t *testing.T) {
	api := newFakeURLAPI()
	api.permissions["lambda-example"] = true // grant already present
	r := NewURLReconciler(api, nil)

	url, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig())
	if err != nil {
		t.Fatalf("EnsureURL() error = %v, conflict should be swallowed", err)
	}
	if url == "" {
		t.Error("EnsureURL() returned an empty URL")
	}
}

func TestEnsureURLGrantOtherErrorPropagates(t *testing.T) {
	api := newFakeURLAPI()
	api.permissionErr = errors.New("access denied")
	r := NewURLReconciler(api, nil)

	if _, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig()); err == nil {
		t.Error("EnsureURL() should propagate non-conflict grant errors")
	}
}

func TestEnsureURLMissingURL(t *testing.T) {
	api := newFakeURLAPI()
	api.omitURL = true
	r := NewURLReconciler(api, nil)

	_, err := r.EnsureURL(context.Background(), "lambda-example", DefaultURLConfig())
	if !errors.Is(err, ErrIncompleteResponse) {
		t.Errorf("EnsureURL() error = %v, want ErrIncompleteResponse", err)
	}
}

func TestEnsureURLSignedAuthSkipsGrant(t *testing.T) {
	api := newFakeURLAPI()
	r := NewURLReconciler(api, nil)

	cfg := DefaultURLConfig()
	cfg.AuthType = lambdatypes.FunctionUrlAuthTypeAwsIam

	if _, err := r.EnsureURL(context.Background(), "lambda-example", cfg); err != nil {
		t.Fatalf("EnsureURL() error = %v", err)
	}
	if len(api.permissionInputs) != 0 {
		t.Error("signed-auth URLs should not receive the anonymous-invoke grant")
	}
}

func TestDeleteURL(t *testing.T) {
	api := newFakeURLAPI()
	api.urls["lambda-example"] = "https://abc123.lambda-url.us-east-1.on.aws/"
	r := NewURLReconciler(api, nil)

	if err := r.DeleteURL(context.Background(), "lambda-example"); err != nil {
		t.Fatalf("DeleteURL() error = %v", err)
	}
	if len(api.deleteCalls) != 1 {
		t.Errorf("delete calls = %d, want 1", len(api.deleteCalls))
	}
}
