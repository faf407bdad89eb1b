package page

const dashboardTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  {{if not .Static}}<script src="{{.PlotlyURL}}"></script>{{end}}
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; background: #f6f8fa; color: #1f2328; }
    header { padding: 16px 24px; background: #24292f; color: #fff; }
    header h1 { margin: 0; font-size: 20px; }
    main { display: grid; grid-template-columns: repeat(auto-fit, minmax(560px, 1fr)); gap: 16px; padding: 16px 24px; }
    section { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 12px 16px; }
    section h2 { margin: 0 0 8px; font-size: 15px; }
    .filters { display: flex; flex-wrap: wrap; gap: 8px; align-items: end; margin-bottom: 8px; }
    .filters label { display: flex; flex-direction: column; font-size: 12px; gap: 2px; }
    .filters input { width: 90px; }
    .chart { min-height: 420px; }
    .chart img { max-width: 100%; }
    .status { font-size: 12px; color: #656d76; }
  </style>
</head>
<body>
  <header><h1>{{.Title}}</h1></header>
  <main>
  {{range .Regions}}
    <section data-chart="{{.Chart}}">
      <h2>{{.Title}}</h2>
      {{if .Inputs}}
      <div class="filters">
        {{range .Inputs}}
        <label>{{.Label}}
          {{if .Select}}
          <select id="{{.ID}}">
            {{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end}}
          </select>
          {{else}}
          <input id="{{.ID}}" type="number" min="1900" max="2100" value="{{.Value}}" />
          {{end}}
        </label>
        {{end}}
        <button type="button" data-refresh="{{.Chart}}">Update</button>
      </div>
      {{end}}
      <div id="{{.Target}}" class="chart">{{if $.Static}}<img alt="{{.Title}}" src="/api/v1/charts/{{.Chart}}/image" />{{end}}</div>
      <div class="status" id="status-{{.Chart}}"></div>
    </section>
  {{end}}
  </main>
  <script>
  (function () {
    var staticMode = {{.Static}};

    function inputsOf(section) {
      var values = {};
      section.querySelectorAll('.filters input, .filters select').forEach(function (el) {
        values[el.id] = el.value;
      });
      return values;
    }

    async function refresh(chart, section) {
      if (staticMode) {
        await fetch('/api/v1/inputs', {
          method: 'PUT',
          headers: {'Content-Type': 'application/json'},
          body: JSON.stringify({values: inputsOf(section)})
        });
      }
      await fetch('/api/v1/charts/' + encodeURIComponent(chart) + '/refresh', {method: 'POST'});
    }

    document.querySelectorAll('[data-refresh]').forEach(function (btn) {
      btn.addEventListener('click', function () {
        refresh(btn.dataset.refresh, btn.closest('section')).catch(function (err) {
          console.error('refresh failed', err);
        });
      });
    });

    if (window.EventSource) {
      var events = new EventSource('/api/v1/events');
      document.querySelectorAll('section[data-chart]').forEach(function (section) {
        var chart = section.dataset.chart;
        events.addEventListener(chart, function (msg) {
          var evt = JSON.parse(msg.data);
          var status = document.getElementById('status-' + chart);
          status.textContent = evt.state + (evt.error ? ': ' + evt.error : '');
          if (staticMode && evt.state === 'rendered') {
            var img = section.querySelector('.chart img');
            img.src = '/api/v1/charts/' + encodeURIComponent(chart) + '/image?cycle=' + evt.cycle;
          }
        });
      });
    }
  })();
  </script>
</body>
</html>`
