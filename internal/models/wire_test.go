package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseDate_AcceptsCollaboratorTimestamps(t *testing.T) {
	for _, in := range []string{"2024-03-08", "2024-03-08T10:30:00Z", "2024-03-08 10:30:00", "2024-03-08T10:30:00.000000Z"} {
		d, err := ParseDate(in)

		require.NoError(t, err, in)
		assert.Equal(t, "2024-03-08", d.String(), in)
	}
}

func Test_ParseDate_Fails_OnGarbage(t *testing.T) {
	_, err := ParseDate("08/03/2024")

	assert.Error(t, err)
}

func Test_Date_KeepsTimeOfDay_WhenReadFromTimestamp(t *testing.T) {
	var d Date

	require.NoError(t, json.Unmarshal([]byte(`"2024-03-08T10:30:00Z"`), &d))

	assert.Equal(t, 10, d.Hour())
}

func Test_Date_NullAndEmpty_ReadAsZero(t *testing.T) {
	var a, b Date

	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	require.NoError(t, json.Unmarshal([]byte(`""`), &b))

	assert.True(t, a.IsZero())
	assert.True(t, b.IsZero())
}

func Test_Date_Marshal_WritesCalendarDateOrNull(t *testing.T) {
	out, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: MustParseDate("2024-03-08T23:59:00Z")})

	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2024-03-08","b":null}`, string(out))
}

func Test_DateOf_UsesCallerZone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	late := time.Date(2024, 3, 8, 20, 0, 0, 0, time.UTC)

	d := DateOf(late.In(jakarta))

	assert.Equal(t, "2024-03-09", d.String())
}

func Test_Int_ReadsNumbersAndStrings(t *testing.T) {
	var v struct {
		A Int `json:"a"`
		B Int `json:"b"`
		C Int `json:"c"`
		D Int `json:"d"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":3,"b":"4","c":"","d":"5.00"}`), &v))

	assert.Equal(t, Int(3), v.A)
	assert.Equal(t, Int(4), v.B)
	assert.Equal(t, Int(0), v.C)
	assert.Equal(t, Int(5), v.D)
}

func Test_NumString_WrittenAsString(t *testing.T) {
	out, err := json.Marshal(Fine{Amount: 15000, PaymentStatus: PaymentUnpaid, Date: MustParseDate("2024-03-11")})

	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Equal(t, "15000", raw["jumlah_denda"])
	assert.Equal(t, "0", raw["status_pembayaran"])
}

func Test_LoanStatus_AcceptsBooleans(t *testing.T) {
	var l Loan

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status_peminjaman":true}`), &l))
	assert.Equal(t, LoanReturned, l.Status)
	assert.False(t, l.IsOutstanding())

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status_peminjaman":"0"}`), &l))
	assert.True(t, l.IsOutstanding())
}

func Test_LoanReturn_OnTime_SendsNullFineFields(t *testing.T) {
	out, err := json.Marshal(LoanReturn{ReturnDate: MustParseDate("2024-03-08"), Status: LoanReturned})

	require.NoError(t, err)
	assert.JSONEq(t, `{"tanggal_pengembalian":"2024-03-08","status_peminjaman":1,"denda":null,"tanggal_denda":null,"jenis_denda":null,"deskripsi":null}`, string(out))
}
