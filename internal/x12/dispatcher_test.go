package x12_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsepipe/ingest/internal/x12"
)

func TestDispatchEmptyInputReturnsUnknown(t *testing.T) {
	content := x12.Dispatch("   ")
	assert.Equal(t, "UNKNOWN", content.TransactionType)
}

func TestDispatchDetectsTransactionTypeFromGS(t *testing.T) {
	raw := "ISA*00*          *00*          *ZZ*SENDER*ZZ*RECEIVER*230101*1200*^*00501*000000905*0*P*:~" +
		"GS*HP*SENDER*RECEIVER*20230101*1200*1*X*005010X221A1~"
	content := x12.Dispatch(raw)
	assert.Equal(t, "835", content.TransactionType)
	assert.Equal(t, "000000905", content.InterchangeControlNumber)
	assert.Equal(t, "1", content.FunctionalGroupControlNumber)
}

func TestDispatchMapsClaimAndChargeAndAdjustment(t *testing.T) {
	raw := "NM1*QC*1*Doe*Jane****MI*PATIENT123~" +
		"CLP*CLAIM001*1*15000*12000*2~" +
		"PLB*HC001*12000**3~" +
		"CAS*CO*45*3000~"

	content := x12.Dispatch(raw)

	require.Len(t, content.Claims, 1)
	claim := content.Claims[0]
	assert.Equal(t, "CLAIM001", claim.ClaimID)
	assert.Equal(t, "PATIENT123", claim.PatientID)
	assert.Equal(t, "accepted", claim.ClaimStatus)
	assert.True(t, claim.TotalChargeAmount.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, claim.TotalPaymentAmount.Equal(decimal.RequireFromString("120.00")))

	require.Len(t, content.Charges, 1)
	assert.Equal(t, "PATIENT123", content.Charges[0].PatientID)
	assert.True(t, content.Charges[0].ChargeAmount.Equal(decimal.RequireFromString("120.00")))

	require.Len(t, content.Adjustments, 1)
	assert.Equal(t, "CO", content.Adjustments[0].AdjustmentType)
	assert.Equal(t, "45", content.Adjustments[0].AdjustmentReasonCode)
	assert.True(t, content.Adjustments[0].AdjustmentAmount.Equal(decimal.RequireFromString("30.00")))
}

func TestDispatchMapsPriorAuthorization(t *testing.T) {
	raw := "NM1*QC*1*Doe*Jane****MI*PATIENT123~UM*AUTH001*HS*A1~"
	content := x12.Dispatch(raw)
	require.Len(t, content.PriorAuthorizations, 1)
	assert.Equal(t, "AUTH001", content.PriorAuthorizations[0].AuthID)
	assert.Equal(t, "PATIENT123", content.PriorAuthorizations[0].PatientID)
}

func TestDispatchSkipsUnrecognizedSegments(t *testing.T) {
	raw := "ZZZ*whatever~"
	assert.NotPanics(t, func() {
		content := x12.Dispatch(raw)
		assert.Empty(t, content.Claims)
	})
}
