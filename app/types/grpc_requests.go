package types

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// SubscriptionLookupRequest resolves by Id when set and by UserId otherwise.
type SubscriptionLookupRequest struct {
	Id     uint64 `json:"id"`
	UserId string `json:"user_id"`
}

func (r *SubscriptionLookupRequest) GetId() uint64     { return r.Id }
func (r *SubscriptionLookupRequest) GetUserId() string { return r.UserId }

func NewSubscriptionLookupRequestFromStruct(in *structpb.Struct) (*SubscriptionLookupRequest, error) {
	id, err := idField(in, "id", false)
	if err != nil {
		return nil, err
	}
	return &SubscriptionLookupRequest{Id: id, UserId: stringField(in, "user_id")}, nil
}

func (r *SubscriptionLookupRequest) Validate() error {
	if r.Id == 0 && r.UserId == "" {
		return fmt.Errorf("user_id or id is required")
	}
	return validateStruct(r)
}

type SubscriptionIDRequest struct {
	Id uint64 `json:"id" validate:"required"`
}

func (r *SubscriptionIDRequest) GetId() uint64 { return r.Id }

func NewSubscriptionIDRequestFromStruct(in *structpb.Struct) (*SubscriptionIDRequest, error) {
	id, err := idField(in, "id", true)
	if err != nil {
		return nil, err
	}
	return &SubscriptionIDRequest{Id: id}, nil
}

func (r *SubscriptionIDRequest) Validate() error {
	return validateStruct(r)
}

type FeatureLookupRequest struct {
	UserId  string `json:"user_id" validate:"required"`
	Feature string `json:"feature" validate:"required"`
}

func (r *FeatureLookupRequest) GetUserId() string  { return r.UserId }
func (r *FeatureLookupRequest) GetFeature() string { return r.Feature }

func NewFeatureLookupRequestFromStruct(in *structpb.Struct) *FeatureLookupRequest {
	return &FeatureLookupRequest{
		UserId:  stringField(in, "user_id"),
		Feature: stringField(in, "feature"),
	}
}

func (r *FeatureLookupRequest) Validate() error {
	return validateStruct(r)
}

// maxSafeAmount is the largest integer a protobuf number carries exactly.
const maxSafeAmount = 1 << 53

// ConsumeRequest defaults Amount to 1 when the caller omits it.
type ConsumeRequest struct {
	UserId  string `json:"user_id" validate:"required"`
	Feature string `json:"feature" validate:"required"`
	Amount  int64  `json:"amount" validate:"min=1,max=1000000"`
}

func (r *ConsumeRequest) GetUserId() string  { return r.UserId }
func (r *ConsumeRequest) GetFeature() string { return r.Feature }
func (r *ConsumeRequest) GetAmount() int64   { return r.Amount }

func NewConsumeRequestFromStruct(in *structpb.Struct) (*ConsumeRequest, error) {
	req := &ConsumeRequest{
		UserId:  stringField(in, "user_id"),
		Feature: stringField(in, "feature"),
		Amount:  1,
	}

	value, ok := in.GetFields()["amount"]
	if !ok {
		return req, nil
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || number.NumberValue != math.Trunc(number.NumberValue) {
		return nil, fmt.Errorf("amount must be an integer")
	}
	if math.Abs(number.NumberValue) > maxSafeAmount {
		return nil, fmt.Errorf("amount is out of range")
	}
	req.Amount = int64(number.NumberValue)
	return req, nil
}

func (r *ConsumeRequest) Validate() error {
	return validateStruct(r)
}

func idField(in *structpb.Struct, name string, required bool) (uint64, error) {
	value, ok := in.GetFields()[name]
	if !ok {
		if required {
			return 0, fmt.Errorf("%s is required", name)
		}
		return 0, nil
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok || number.NumberValue != math.Trunc(number.NumberValue) || number.NumberValue < 1 || number.NumberValue > maxSafeAmount {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return uint64(number.NumberValue), nil
}

func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(in.GetFields()[name].GetStringValue())
}
