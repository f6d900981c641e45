package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Folio</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <style>
    body {
      margin: 0;
      padding: 2rem;
      background: #111;
      color: #eee;
      font-family: 'Space Mono', 'JetBrains Mono', monospace;
    }
    #app { max-width: 1100px; margin: 0 auto; }
    h1 { font-size: 1rem; text-transform: uppercase; letter-spacing: .2em; }
    #chart-wrap { background: #1a1a1a; border: 1px solid #333; padding: 1rem; }
    nav a { color: #7d8; margin-right: 1.5rem; font-size: .8rem; }
  </style>
</head>
<body>
  <div id="app">
    <h1>Folio account value</h1>
    <nav>
      <a href="/scores">scores</a>
      <a href="/balance/history">balance history</a>
    </nav>
    <div id="chart-wrap"><canvas id="balanceChart"></canvas></div>
  </div>
  <script>
    const ctx = document.getElementById('balanceChart');
    const chart = new Chart(ctx, {
      type: 'line',
      data: { labels: [], datasets: [{ label: 'total value', data: [], borderColor: '#7d8', tension: .2 }] },
      options: { animation: false, scales: { x: { ticks: { color: '#888' } }, y: { ticks: { color: '#888' } } } }
    });

    fetch('/balance/history')
      .then(r => r.json())
      .then(history => {
        history.reverse().forEach(s => {
          chart.data.labels.push(new Date(s.timestamp).toISOString());
          chart.data.datasets[0].data.push(Number(s.total_value));
        });
        chart.update();
      });

    const source = new EventSource('/balance/stream');
    source.addEventListener('balance', e => {
      const s = JSON.parse(e.data);
      chart.data.labels.push(new Date(s.timestamp).toISOString());
      chart.data.datasets[0].data.push(Number(s.total_value));
      chart.update();
    });
  </script>
</body>
</html>`
