package proxy_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/anoideaopen/proxymanager/core/interceptor"
	"github.com/anoideaopen/proxymanager/core/proxy"
	"github.com/anoideaopen/proxymanager/mock"
	"github.com/anoideaopen/proxymanager/version"
	"github.com/stretchr/testify/require"
)

func skipLargeAmounts(_, _ any, _ string, params *interceptor.Params, returnEarly *bool) (any, error) {
	if v, _ := params.Get("amount"); v.(int) >= 100 { //nolint:forcetypeassert
		*returnEarly = true
	}
	return nil, nil
}

func TestAnonymousInterceptorsAreNotSerializable(t *testing.T) {
	f, _ := mock.NewFactory(t)

	p, err := f.CreateProxy(&mock.VoidCounter{}, interceptor.Prefixes{"Increment": skipLargeAmounts}, nil)
	require.NoError(t, err)

	_, err = p.MarshalJSON()
	require.ErrorIs(t, err, interceptor.ErrNotSerializable)

	_, err = p.MarshalBinary()
	require.ErrorIs(t, err, interceptor.ErrNotSerializable)
}

func TestCatalogInterceptorsSurviveSerialization(t *testing.T) {
	for _, format := range []proxy.Format{proxy.FormatJSON, proxy.FormatCBOR} {
		t.Run(format.String(), func(t *testing.T) {
			f, sr := mock.NewFactory(t)
			require.NoError(t, f.Catalog().RegisterPrefix("skip-large", skipLargeAmounts))

			p, err := f.CreateProxy(&mock.VoidCounter{}, nil, nil)
			require.NoError(t, err)
			require.NoError(t, p.UsePrefixInterceptor("Increment", "skip-large"))

			_, err = p.Call("Increment", 10)
			require.NoError(t, err)

			data, err := p.Marshal(context.Background(), format)
			require.NoError(t, err)

			env, detected, err := proxy.DecodeEnvelope(data)
			require.NoError(t, err)
			require.Equal(t, format, detected)
			require.Equal(t, proxy.EnvelopeVersion, env.Version)
			require.Equal(t, version.Module(), env.Build)
			require.Equal(t, p.ID(), env.ID)
			require.Equal(t, p.ClassName(), env.Class)
			require.Equal(t, map[string]string{"Increment": "skip-large"}, env.Prefix)
			require.Empty(t, env.Suffix)

			restored, err := f.Unmarshal(data)
			require.NoError(t, err)
			require.Equal(t, p.ID(), restored.ID())
			require.Equal(t, p.WrappedValue(), restored.WrappedValue())

			_, err = restored.Call("Increment", 150)
			require.NoError(t, err)
			_, err = restored.Call("Increment", 5)
			require.NoError(t, err)

			counter, err := restored.Get("Counter")
			require.NoError(t, err)
			require.Equal(t, 15, counter)

			var names []string
			for _, span := range sr.Ended() {
				names = append(names, span.Name())
			}
			require.Contains(t, names, "proxy.marshal")
			require.Contains(t, names, "proxy.unmarshal")
		})
	}
}

func TestUnmarshalRequiresKnownClassAndInterceptors(t *testing.T) {
	f, _ := mock.NewFactory(t)
	require.NoError(t, f.Catalog().RegisterPrefix("skip-large", skipLargeAmounts))

	p, err := f.CreateProxy(&mock.VoidCounter{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.UsePrefixInterceptor("Increment", "skip-large"))

	data, err := p.MarshalJSON()
	require.NoError(t, err)

	other, _ := mock.NewFactory(t)

	_, err = other.Unmarshal(data)
	require.ErrorIs(t, err, proxy.ErrUnknownClass)

	require.NoError(t, other.Register((*mock.VoidCounter)(nil)))
	_, err = other.Unmarshal(data)
	require.ErrorIs(t, err, interceptor.ErrUnknownInterceptor)

	require.NoError(t, other.Catalog().RegisterPrefix("skip-large", skipLargeAmounts))
	restored, err := other.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, p.ID(), restored.ID())
}

func TestUnknownInterceptorNameIsRejected(t *testing.T) {
	f, _ := mock.NewFactory(t)

	p, err := f.CreateProxy(&mock.VoidCounter{}, nil, nil)
	require.NoError(t, err)

	require.ErrorIs(t, p.UsePrefixInterceptor("Increment", "missing"), interceptor.ErrUnknownInterceptor)
	require.ErrorIs(t, p.UseSuffixInterceptor("Increment", "missing"), interceptor.ErrUnknownInterceptor)
}

func TestAccountStateSurvivesSerialization(t *testing.T) {
	for _, format := range []proxy.Format{proxy.FormatJSON, proxy.FormatCBOR} {
		t.Run(format.String(), func(t *testing.T) {
			f, _ := mock.NewFactory(t)

			p, err := f.CreateProxy(mock.NewAccount("alice"), nil, nil)
			require.NoError(t, err)

			_, err = p.Call("Deposit", big.NewInt(500))
			require.NoError(t, err)
			_, err = p.Call("Freeze")
			require.NoError(t, err)
			require.NoError(t, p.Set("tier", "gold"))
			require.NoError(t, p.Unset("Note"))

			data, err := p.Marshal(context.Background(), format)
			require.NoError(t, err)

			restored, err := f.Unmarshal(data)
			require.NoError(t, err)

			account := restored.WrappedValue().(*mock.Account) //nolint:forcetypeassert
			require.Equal(t, "alice", account.Owner)
			require.Equal(t, "1500", account.Balance.String())
			require.Equal(t, []string{"opened", "deposit 500"}, account.History())
			require.True(t, account.Frozen())
			require.Nil(t, account.Note)

			deposits, largest := account.Deposits()
			require.Equal(t, 1, deposits)
			require.Equal(t, "500", largest.String())

			tier, err := restored.Get("tier")
			require.NoError(t, err)
			require.Equal(t, "gold", tier)

			isset, err := restored.Isset("Note")
			require.NoError(t, err)
			require.False(t, isset)
		})
	}
}

func TestProtoFieldSurvivesSerialization(t *testing.T) {
	f, _ := mock.NewFactory(t)

	p, err := f.CreateProxy(mock.NewAccount("bob"), nil, nil)
	require.NoError(t, err)

	data, err := p.MarshalBinary()
	require.NoError(t, err)

	restored, err := f.Unmarshal(data)
	require.NoError(t, err)

	note, err := restored.Get("Note")
	require.NoError(t, err)
	require.Equal(t, "note of bob", note.(interface{ GetValue() string }).GetValue()) //nolint:forcetypeassert
}

func TestLazyProxyIsInitializedForSerialization(t *testing.T) {
	f, _ := mock.NewFactory(t)

	p, err := f.CreateLazyProxy((*mock.CounterConstructor)(nil), func(string) (any, error) {
		return &mock.CounterConstructor{Amount: 7}, nil
	}, nil, nil)
	require.NoError(t, err)

	data, err := p.MarshalJSON()
	require.NoError(t, err)
	require.True(t, p.IsInitialized())

	restored, err := f.Unmarshal(data)
	require.NoError(t, err)
	require.True(t, restored.IsInitialized())

	amount, err := restored.Call("GetAmount")
	require.NoError(t, err)
	require.Equal(t, 7, amount)
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, _, err := proxy.DecodeEnvelope([]byte(`{"version":2,"class":"x"}`))
	require.ErrorIs(t, err, proxy.ErrUnsupportedVersion)

	_, format, err := proxy.DecodeEnvelope([]byte(`{"version":`))
	require.Error(t, err)
	require.Equal(t, proxy.FormatJSON, format)

	_, format, err = proxy.DecodeEnvelope([]byte{0xff, 0x00})
	require.Error(t, err)
	require.Equal(t, proxy.FormatCBOR, format)

	f, _ := mock.NewFactory(t)
	p, err := f.CreateProxy(&mock.Empty{}, nil, nil)
	require.NoError(t, err)

	_, err = p.Marshal(context.Background(), proxy.Format(42))
	require.ErrorIs(t, err, proxy.ErrUnknownFormat)
}
