package serialize

import (
	"net/url"
	"strconv"

	"github.com/norikmb/nifcloud-sdk-go/internal/protocol"
)

var (
	computingRewrites = map[string]bodyRewrite{
		"DescribeLoadBalancers": describeLoadBalancers,
		"RunInstances":          userDataContent,
		"StartInstances":        userDataContent,
		"RebootInstances":       userDataContent,
	}
	rdbRewrites = map[string]bodyRewrite{
		"NiftyGetMetricStatistics": metricStatistics,
	}
	nasRewrites = map[string]bodyRewrite{
		"GetMetricStatistics": metricStatistics,
	}
	essRewrites = map[string]bodyRewrite{
		"GetDeliveryLog": deliveryLog,
	}
)

const (
	metricTimeLayout   = "2006-01-02 15:04"
	deliveryTimeLayout = "2006-01-02T15:04"
)

func baseForm(op, version string) url.Values {
	return url.Values{"Action": {op}, "Version": {version}}
}

// describeLoadBalancers lists the ports of each load balancer next to its name
// instead of below it.
func describeLoadBalancers(op, version string, params map[string]any, _ url.Values) url.Values {
	const prefix = "LoadBalancerNames"
	form := baseForm(op, version)

	names, _ := params[prefix].([]any)
	for i, n := range names {
		lb, _ := n.(map[string]any)
		idx := strconv.Itoa(i + 1)
		setIfPresent(form, prefix+".member."+idx, lb, "LoadBalancerName")
		setIfPresent(form, prefix+".LoadBalancerPort."+idx, lb, "LoadBalancerPort")
		setIfPresent(form, prefix+".InstancePort."+idx, lb, "InstancePort")
	}
	return form
}

// userDataContent sends the user data script as a plain UserData parameter.
func userDataContent(_, _ string, _ map[string]any, form url.Values) url.Values {
	content := form.Get("UserData.Content")
	if content == "" {
		return form
	}
	form.Set("UserData", content)
	form.Del("UserData.Content")
	return form
}

func metricStatistics(op, version string, params map[string]any, _ url.Values) url.Values {
	const prefix = "Dimensions"
	form := baseForm(op, version)
	if !truthy(params[prefix]) && !truthy(params["MetricName"]) {
		return form
	}

	dims, _ := params[prefix].([]any)
	for i, d := range dims {
		dim, _ := d.(map[string]any)
		member := prefix + ".member." + strconv.Itoa(i+1)
		setIfPresent(form, member+".Name", dim, "Name")
		setIfPresent(form, member+".Value", dim, "Value")
	}
	setIfPresent(form, "MetricName", params, "MetricName")
	setTime(form, "StartTime", params, metricTimeLayout)
	setTime(form, "EndTime", params, metricTimeLayout)
	return form
}

func deliveryLog(op, version string, params map[string]any, _ url.Values) url.Values {
	form := baseForm(op, version)
	for _, k := range []string{"Status", "MaxItems", "NextToken"} {
		if truthy(params[k]) {
			form.Set(k, protocol.FormatScalar(params[k]))
		}
	}
	setTime(form, "StartDate", params, deliveryTimeLayout)
	setTime(form, "EndDate", params, deliveryTimeLayout)
	return form
}

func setIfPresent(form url.Values, name string, m map[string]any, key string) {
	v, ok := m[key]
	if !ok || v == nil {
		return
	}
	form.Set(name, protocol.FormatScalar(v))
}

// setTime renders a time member in layout. Values that are not timestamps are sent as they are.
func setTime(form url.Values, name string, params map[string]any, layout string) {
	v := params[name]
	if !truthy(v) {
		return
	}
	t, err := protocol.ToTime(v)
	if err != nil {
		form.Set(name, protocol.FormatScalar(v))
		return
	}
	form.Set(name, t.Format(layout))
}
